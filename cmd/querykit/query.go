package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/baseplate/querykit/config"
	"github.com/baseplate/querykit/internal/core/entity"
	"github.com/baseplate/querykit/internal/core/query"
	"github.com/baseplate/querykit/internal/core/validation"
	"github.com/baseplate/querykit/internal/logger"
)

var queryFlags struct {
	file       string
	team       string
	filters    []string
	connective string
	q          string
	sort       string
	order      string
	page       int
	size       int
	lenient    bool
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a query against entities in a JSON file",
	Long: `Load entities from a JSON array and run a search over them, the same
way the server does. Criteria use the field names of the search filter.

Values are read as JSON when they parse, otherwise as plain strings.

Examples:
  # Active entities by descending priority
  querykit query --file entities.json --filter status=active --sort priority --order desc

  # Created on or after a day, second page of five
  querykit query --file entities.json --filter created_at=2024-03-01 --filter date_modes=gte --page 2 --size 5`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVarP(&queryFlags.file, "file", "f", "", "entities JSON file (required)")
	queryCmd.Flags().StringVar(&queryFlags.team, "team", "", "team to query; entities without a team_id are assigned to it")
	queryCmd.Flags().StringArrayVar(&queryFlags.filters, "filter", nil, "criterion as name=value, repeatable")
	queryCmd.Flags().StringVar(&queryFlags.connective, "connective", "", "AND or OR")
	queryCmd.Flags().StringVarP(&queryFlags.q, "q", "q", "", "full text search")
	queryCmd.Flags().StringVar(&queryFlags.sort, "sort", "", "sort field")
	queryCmd.Flags().StringVar(&queryFlags.order, "order", "", "asc or desc")
	queryCmd.Flags().IntVar(&queryFlags.page, "page", 1, "page number")
	queryCmd.Flags().IntVar(&queryFlags.size, "size", query.DefaultLimitPaging, "page size")
	queryCmd.Flags().BoolVar(&queryFlags.lenient, "lenient", false, "skip criteria that cannot be applied instead of failing")
	_ = queryCmd.MarkFlagRequired("file")
}

// parseFilters turns name=value pairs into a filter document.
func parseFilters(pairs []string) (map[string]any, error) {
	filter := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid filter %q, want name=value", pair)
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		filter[name] = value
	}
	return filter, nil
}

func loadEntities(path string, teamID uuid.UUID) ([]*entity.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entities []*entity.Entity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for _, e := range entities {
		if e.TeamID == uuid.Nil {
			e.TeamID = teamID
		}
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
	}
	return entities, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	teamID := uuid.Nil
	if queryFlags.team != "" {
		id, err := uuid.Parse(queryFlags.team)
		if err != nil {
			return fmt.Errorf("invalid --team: %w", err)
		}
		teamID = id
	}

	if queryFlags.connective != "" && !validation.IsConnective(queryFlags.connective) {
		return fmt.Errorf("invalid --connective %q", queryFlags.connective)
	}
	if queryFlags.order != "" && !validation.IsSortOrder(queryFlags.order) {
		return fmt.Errorf("invalid --order %q", queryFlags.order)
	}

	filter, err := parseFilters(queryFlags.filters)
	if err != nil {
		return err
	}

	entities, err := loadEntities(queryFlags.file, teamID)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if queryFlags.lenient {
		cfg.Query.Policy = query.Lenient.String()
	}

	svc := entity.NewService(entity.NewMemoryRepository(entities...), validation.NewValidator(), cfg.Query, logger.Get())
	resp, err := svc.Search(cmd.Context(), teamID, &entity.SearchRequest{
		Filter:     filter,
		Connective: queryFlags.connective,
		Q:          queryFlags.q,
		Sort:       queryFlags.sort,
		Order:      queryFlags.order,
		Page:       queryFlags.page,
		Size:       queryFlags.size,
	})
	if err != nil {
		if validation.IsValidationError(err) {
			for _, e := range validation.GetValidationErrors(err).Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", e.Field, e.Message)
			}
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
