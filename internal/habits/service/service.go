package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kiribu/actor-relay/internal/habits/repository"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultAnchor is where habits without a stored anchor start counting.
var DefaultAnchor = time.Date(2021, 12, 14, 0, 0, 0, 0, time.UTC)

const maxPunchesPerHabit = 10000

type Store interface {
	ListEnabled(ctx context.Context) ([]repository.Habit, error)
	Anchors(ctx context.Context) (map[string]time.Time, error)
	UpsertPunches(ctx context.Context, punches []repository.Punch) (int64, error)
	SetAnchors(ctx context.Context, anchors map[string]time.Time) error
	FailOverdue(ctx context.Context, now time.Time) (int64, error)
}

type Notifier interface {
	SendMarkdown(chatID int64, text string) error
}

type Service struct {
	store    Store
	notifier Notifier
	chatID   int64
	loc      *time.Location
	parser   cron.Parser
	validate *validator.Validate
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(store Store, notifier Notifier, chatID int64, loc *time.Location, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		chatID:   chatID,
		loc:      loc,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		validate: validator.New(),
		now:      time.Now,
		logger:   logger,
	}
}

// Run generates the punches that came due since each habit's anchor, reports
// them to the chat and fails the punches whose deadline has passed.
func (s *Service) Run(ctx context.Context) error {
	now := s.now().UTC()
	s.logger.Info("habits job running", zap.Time("at", now))

	habits, err := s.store.ListEnabled(ctx)
	if err != nil {
		return err
	}
	anchors, err := s.store.Anchors(ctx)
	if err != nil {
		return err
	}

	var punches []repository.Punch
	next := make(map[string]time.Time, len(habits))
	for _, h := range habits {
		if err := s.validate.Struct(h); err != nil {
			s.logger.Warn("skipping invalid habit", zap.String("name", h.Name), zap.Error(err))
			continue
		}
		schedule, err := s.parser.Parse(h.Cronline)
		if err != nil {
			s.logger.Warn("skipping habit with invalid cronline",
				zap.String("name", h.Name),
				zap.String("cronline", h.Cronline),
				zap.Error(err),
			)
			continue
		}

		base, ok := anchors[h.Name]
		if !ok {
			base = DefaultAnchor
		}
		due, capped := s.duePunches(h, schedule, base, now)
		punches = append(punches, due...)

		// A capped habit resumes from its last punch on the next run.
		next[h.Name] = now
		if capped {
			next[h.Name] = due[len(due)-1].Date
		}
	}

	if len(punches) > 0 {
		created, err := s.store.UpsertPunches(ctx, punches)
		if err != nil {
			return err
		}
		s.logger.Info("habit punches created", zap.Int64("upserted", created), zap.Int("due", len(punches)))

		if err := s.notifier.SendMarkdown(s.chatID, s.summary(punches)); err != nil {
			s.logger.Error("failed to send habits summary", zap.Error(err))
		}

		if err := s.store.SetAnchors(ctx, next); err != nil {
			return err
		}
	}

	failed, err := s.store.FailOverdue(ctx, now)
	if err != nil {
		return err
	}
	if failed > 0 {
		s.logger.Info("marked habits as failed", zap.Int64("count", failed))
	}

	return nil
}

// duePunches walks the schedule in the configured zone from base up to and
// including now. capped reports that occurrences remain past the last punch.
func (s *Service) duePunches(h repository.Habit, schedule cron.Schedule, base, now time.Time) (punches []repository.Punch, capped bool) {
	t := base.In(s.loc)
	for {
		next := schedule.Next(t)
		if next.IsZero() || next.After(now) {
			break
		}
		if len(punches) == maxPunchesPerHabit {
			s.logger.Warn("habit punch limit reached, resuming next run",
				zap.String("name", h.Name),
				zap.Int("limit", maxPunchesPerHabit),
				zap.Time("resume_after", punches[len(punches)-1].Date),
			)
			return punches, true
		}

		date := next.UTC()
		punches = append(punches, repository.Punch{
			Name:     h.Name,
			Date:     date,
			Due:      date.Add(time.Duration(h.DelayMin) * time.Minute),
			OnFailed: h.OnFailed,
			Info:     h.Info,
		})
		t = next
	}
	return punches, false
}

func (s *Service) summary(punches []repository.Punch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New habits generated (%s Time):\n```\n", zoneDisplayName(s.loc))

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "name\tdue")
	for _, p := range punches {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Due.In(s.loc).Format("2006-01-02 15:04"))
	}
	tw.Flush()

	b.WriteString("```")
	return b.String()
}

func zoneDisplayName(loc *time.Location) string {
	return strings.ReplaceAll(path.Base(loc.String()), "_", " ")
}
