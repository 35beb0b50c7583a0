package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/filtering"
	"github.com/spigell/internship-recommender/internal/matching"
	"github.com/spigell/internship-recommender/internal/utils"
)

const (
	PromptDone        = "Done"
	PromptBack        = "back"
	PromptDetails     = "Show listing details and similar listings"
	PromptBreakdown   = "Explain scores"
	PromptDumpToFile  = "Dump recommendations to file"
	PromptExclude     = "Append recommendations to exclude file"
	PromptAnyLocation = "Any"

	maxSkillsLogLength = 80
	locationChoices    = 8
)

var errExit = errors.New("exit requested")

func actionPrompt(excludeFile string) promptui.Select {
	items := []string{PromptDone, PromptDetails, PromptBreakdown, PromptDumpToFile}
	if excludeFile != "" {
		items = append(items, PromptExclude)
	}
	return promptui.Select{Label: "What next?", Items: items}
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank listings for a candidate profile and print them as JSON",
	Run: func(cmd *cobra.Command, _ []string) {
		recommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringSlice("skills", nil, "candidate skills, comma separated")
	recommendCmd.Flags().String("education", "", "candidate education, e.g. \"B.Tech Computer Science\"")
	recommendCmd.Flags().String("location", "", "preferred location, \"work from home\" or \"any\"")
	recommendCmd.Flags().Float64("min-stipend", 0, "minimum acceptable monthly stipend")
	recommendCmd.Flags().Int("limit", 0, "maximum number of recommendations (default is recommend.limit)")
	recommendCmd.Flags().Bool("explain", false, "include the per-factor score breakdown")
	recommendCmd.Flags().BoolP("interactive", "i", false, "enter the profile interactively and browse the results")
	recommendCmd.Flags().StringP("exclude-file", "e", "", "file with listings to exclude. Default is unset.")

	viper.BindPFlag("recommend.exclude-file", recommendCmd.Flags().Lookup("exclude-file"))
}

// explained is a recommendation with its factor breakdown.
type explained struct {
	matching.ScoredListing
	Breakdown matching.Breakdown `json:"breakdown"`
}

func recommend(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := setup()
	engine := mustEngine(ctx, config, logger)

	interactive, _ := cmd.Flags().GetBool("interactive")
	explain, _ := cmd.Flags().GetBool("explain")

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = config.Recommend.Limit
	}

	var profile matching.Profile
	if interactive {
		var err error
		profile, err = promptProfile(engine.Catalog())
		if err != nil {
			logger.Fatal("reading the profile", zap.Error(err))
		}
	} else {
		profile = profileFromFlags(cmd)
	}

	logger.Info("ranking listings",
		zap.String("skills", utils.JoinForLog(profile.Skills, maxSkillsLogLength)),
		zap.String("location", profile.LocationPreference),
		zap.Float64("min_stipend", profile.MinStipend),
		zap.Int("limit", limit),
	)

	recs, err := engine.Recommend(ctx, profile, limit)
	if err != nil {
		logger.Fatal("ranking listings", zap.Error(err))
	}

	if len(recs) == 0 {
		logger.Info("exiting", zap.String("reason", "no listings match the profile"))
		return
	}

	if err := printJSON(render(profile, recs, explain)); err != nil {
		logger.Fatal("printing recommendations", zap.Error(err))
	}

	if !interactive {
		return
	}

	prompt := actionPrompt(config.Recommend.ExcludeFile)
	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, engine, logger, config, profile, recs); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func render(profile matching.Profile, recs []matching.ScoredListing, explain bool) any {
	if !explain {
		return recs
	}

	out := make([]explained, 0, len(recs))
	for _, r := range recs {
		out = append(out, explained{ScoredListing: r, Breakdown: matching.Explain(profile, r.Listing)})
	}
	return out
}

func profileFromFlags(cmd *cobra.Command) matching.Profile {
	skills, _ := cmd.Flags().GetStringSlice("skills")
	education, _ := cmd.Flags().GetString("education")
	location, _ := cmd.Flags().GetString("location")
	minStipend, _ := cmd.Flags().GetFloat64("min-stipend")

	return matching.Profile{
		Skills:             cleanSkills(skills),
		Education:          education,
		LocationPreference: location,
		MinStipend:         minStipend,
	}
}

func cleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func promptProfile(c *catalog.Catalog) (matching.Profile, error) {
	var profile matching.Profile

	skills, err := (&promptui.Prompt{Label: "Skills (comma separated)"}).Run()
	if err != nil {
		return profile, err
	}
	profile.Skills = cleanSkills(strings.Split(skills, ","))

	profile.Education, err = (&promptui.Prompt{Label: "Education"}).Run()
	if err != nil {
		return profile, err
	}

	locationPrompt := promptui.Select{
		Label: "Preferred location",
		Items: locationItems(c),
	}
	_, location, err := locationPrompt.Run()
	if err != nil {
		return profile, err
	}
	if location != PromptAnyLocation {
		profile.LocationPreference = location
	}

	stipend, err := (&promptui.Prompt{
		Label:    "Minimum stipend",
		Default:  "0",
		Validate: validateStipend,
	}).Run()
	if err != nil {
		return profile, err
	}
	profile.MinStipend, _ = strconv.ParseFloat(strings.TrimSpace(stipend), 64)

	return profile, nil
}

// locationItems offers the most common catalog locations after "Any" and "Work From Home".
func locationItems(c *catalog.Catalog) []string {
	items := []string{PromptAnyLocation, "Work From Home"}
	for _, loc := range c.Stats().TopLocations {
		if len(items) >= locationChoices {
			break
		}
		if strings.EqualFold(loc.Name, catalog.WorkFromHome) {
			continue
		}
		items = append(items, loc.Name)
	}
	return items
}

func validateStipend(input string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil {
		return errors.New("stipend must be a number")
	}
	if v < 0 {
		return errors.New("stipend must not be negative")
	}
	return nil
}

func handleAction(action string, engine *matching.Engine, logger *zap.Logger, config *Config, profile matching.Profile, recs []matching.ScoredListing) error {
	switch action {
	case PromptDone:
		logger.Info("exiting", zap.String("reason", "got done from prompt"))
		return errExit
	case PromptDetails:
		return showDetails(engine, recs)
	case PromptBreakdown:
		return printJSON(render(profile, recs, true))
	case PromptDumpToFile:
		filename, err := dumpToTmpFile(recs)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExclude:
		return appendToExcludeFile(config.Recommend.ExcludeFile, recs, logger)
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func showDetails(engine *matching.Engine, recs []matching.ScoredListing) error {
	for {
		items := make([]string, 0, len(recs)+1)
		for _, r := range recs {
			items = append(items, fmt.Sprintf("%d %s / %s / %d%%", r.ID, r.Title, r.Company, r.MatchPercentage))
		}

		listingPrompt := promptui.Select{
			Label: "Choose a listing and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := listingPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		id, err := strconv.Atoi(strings.Split(selected, " ")[0])
		if err != nil {
			return fmt.Errorf("there is no such listing %q", selected)
		}

		listing, ok := engine.Catalog().ByID(id)
		if !ok {
			return fmt.Errorf("there is no such listing id %d", id)
		}

		similar, err := engine.Similar(id, matching.DefaultRelatedLimit)
		if err != nil {
			return err
		}

		if err := printJSON(map[string]any{"listing": listing, "similar": similar}); err != nil {
			return err
		}
	}
}

func appendToExcludeFile(path string, recs []matching.ScoredListing, logger *zap.Logger) error {
	excluded, err := filtering.ExcludedFromFile(path)
	if err != nil {
		return err
	}

	listings := make([]catalog.Listing, 0, len(recs))
	for _, r := range recs {
		listings = append(listings, r.Listing)
	}
	excluded.Append(filtering.ToExcluded(listings))

	if err := excluded.ToFile(path); err != nil {
		return err
	}

	logger.Info("appended to exclude file", zap.String("filename", path), zap.Int("excluded", excluded.Len()))
	return nil
}

func dumpToTmpFile(recs []matching.ScoredListing) (string, error) {
	f, err := os.CreateTemp("", app+"-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(recs); err != nil {
		return "", err
	}

	return f.Name(), nil
}
