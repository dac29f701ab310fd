package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baseplate/querykit/config"
	"github.com/baseplate/querykit/internal/core/query"
	"github.com/baseplate/querykit/internal/core/validation"
	"github.com/baseplate/querykit/internal/metrics"
)

var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidQuery  = errors.New("invalid query")
)

var filterType = reflect.TypeOf(Filter{})

type Service struct {
	repo      Repository
	validator *validation.Validator
	config    config.QueryConfig
	logger    *slog.Logger
}

func NewService(repo Repository, validator *validation.Validator, cfg config.QueryConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		validator: validator,
		config:    cfg,
		logger:    logger,
	}
}

func (s *Service) Create(ctx context.Context, teamID uuid.UUID, req *CreateEntityRequest) (*Entity, error) {
	existing, err := s.repo.GetByIdentifier(ctx, teamID, req.BlueprintID, req.Identifier)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	entity := &Entity{
		ID:          uuid.New(),
		TeamID:      teamID,
		BlueprintID: req.BlueprintID,
		Identifier:  req.Identifier,
		Title:       req.Title,
		Status:      req.Status,
		Priority:    req.Priority,
		Score:       req.Score,
		Price:       req.Price,
		Owner:       req.Owner,
		Tags:        req.Tags,
	}

	if err := s.repo.Create(ctx, entity); err != nil {
		return nil, err
	}

	return entity, nil
}

// Get returns the entity only if it belongs to teamID.
func (s *Service) Get(ctx context.Context, teamID, id uuid.UUID) (*Entity, error) {
	entity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity == nil || entity.TeamID != teamID {
		return nil, ErrNotFound
	}
	return entity, nil
}

func (s *Service) Update(ctx context.Context, teamID, id uuid.UUID, req *UpdateEntityRequest) (*Entity, error) {
	entity, err := s.Get(ctx, teamID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		entity.Title = *req.Title
	}
	if req.Status != nil {
		entity.Status = *req.Status
	}
	if req.Priority != nil {
		entity.Priority = *req.Priority
	}
	if req.Score != nil {
		entity.Score = *req.Score
	}
	if req.Price != nil {
		entity.Price = *req.Price
	}
	if req.Owner != nil {
		entity.Owner = req.Owner
	}
	if req.Tags != nil {
		entity.Tags = *req.Tags
	}
	if req.Archived != nil {
		switch {
		case *req.Archived && entity.ArchivedAt == nil:
			now := time.Now().UTC()
			entity.ArchivedAt = &now
		case !*req.Archived:
			entity.ArchivedAt = nil
		}
	}

	if err := s.repo.Update(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service) Delete(ctx context.Context, teamID, id uuid.UUID) error {
	if _, err := s.Get(ctx, teamID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Search validates the filter document against the schema of Filter, decodes
// it and runs the query.
func (s *Service) Search(ctx context.Context, teamID uuid.UUID, req *SearchRequest) (*ListEntitiesResponse, error) {
	if err := s.validator.ValidateFilter(req.Filter, filterType); err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	var filter Filter
	if err := query.Decode(req.Filter, &filter); err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	return s.run(ctx, teamID, &filter, params{
		connective: req.Connective,
		q:          req.Q,
		sort:       req.Sort,
		order:      req.Order,
		page:       req.Page,
		size:       req.Size,
	})
}

// List runs a query given as query string parameters.
func (s *Service) List(ctx context.Context, teamID uuid.UUID, q *ListQuery) (*ListEntitiesResponse, error) {
	var filter Filter
	if err := query.Decode(q.Criteria(), &filter); err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	return s.run(ctx, teamID, &filter, params{
		connective: q.Connective,
		q:          q.Q,
		sort:       q.Sort,
		order:      q.Order,
		page:       q.Page,
		size:       q.Size,
	})
}

type params struct {
	connective string
	q          string
	sort       string
	order      string
	page       int
	size       int
}

func (s *Service) run(ctx context.Context, teamID uuid.UUID, filter *Filter, p params) (*ListEntitiesResponse, error) {
	policy := query.ParsePolicy(s.config.Policy)

	src := query.FullTextSearch(s.repo.Query(teamID), strings.TrimSpace(p.q))

	src, err := query.DynamicFilter(src, filter,
		query.WithPolicy(policy),
		query.WithConnective(p.connective),
		query.WithLogger(s.logger),
	)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	src, err = query.DynamicSort(src, p.sort, p.order, s.config.DefaultOrder)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	limit, def := s.limits()
	total, window, err := query.PagingQueryable(ctx, src, p.page, p.size, limit, def)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	entities, err := window.List(ctx)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if entities == nil {
		entities = []*Entity{}
	}

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	metrics.SearchResults.Observe(float64(total))

	page := query.NormalizePage(p.page, p.size, limit, def)
	return &ListEntitiesResponse{
		Entities:   entities,
		Total:      total,
		Page:       page.Page,
		Size:       page.Size,
		TotalPages: page.TotalPages(total),
	}, nil
}

func (s *Service) limits() (int, int) {
	limit, def := s.config.MaxPageSize, s.config.DefaultPageSize
	if limit < 1 {
		limit = query.DefaultLimitPaging
	}
	if def < 1 {
		def = query.DefaultPaging
	}
	return limit, def
}
