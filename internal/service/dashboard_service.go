package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/domain/repository"
)

const (
	XPPerCorrectAnswer    = 10
	XPPerCompletedSession = 5
	recentSessionsLimit   = 5
)

// DashboardStats - производная статистика ученика
type DashboardStats struct {
	TotalSessions     int                      `json:"total_sessions"`
	CompletedSessions int                      `json:"completed_sessions"`
	AverageScore      float64                  `json:"average_score"`
	AnsweredQuestions int64                    `json:"answered_questions"`
	CorrectAnswers    int64                    `json:"correct_answers"`
	Accuracy          float64                  `json:"accuracy"`
	XP                int64                    `json:"xp"`
	CurrentStreak     int                      `json:"current_streak"`
	LongestStreak     int                      `json:"longest_streak"`
	LastActiveDate    string                   `json:"last_active_date,omitempty"`
	RecentSessions    []entity.PracticeSession `json:"recent_sessions"`
}

// DashboardService считает статистику для личного кабинета
type DashboardService struct {
	sessionRepo repository.PracticeSessionRepository
	answerRepo  repository.PracticeAnswerRepository
	now         func() time.Time
}

// NewDashboardService создает сервис статистики
func NewDashboardService(sessionRepo repository.PracticeSessionRepository, answerRepo repository.PracticeAnswerRepository) *DashboardService {
	return &DashboardService{
		sessionRepo: sessionRepo,
		answerRepo:  answerRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Stats собирает статистику пользователя
func (s *DashboardService) Stats(ctx context.Context, userID uuid.UUID) (*DashboardStats, error) {
	sessions, err := s.sessionRepo.ListAllByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answerRepo.StatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ComputeStats(sessions, answers, s.now()), nil
}

// ComputeStats считает статистику по сессиям (в хронологическом порядке) и агрегатам ответов
func ComputeStats(sessions []entity.PracticeSession, answers repository.AnswerStats, now time.Time) *DashboardStats {
	stats := &DashboardStats{
		TotalSessions:     len(sessions),
		AnsweredQuestions: answers.Answered,
		CorrectAnswers:    answers.Correct,
		RecentSessions:    []entity.PracticeSession{},
	}

	scoreSum := 0
	var days []time.Time
	for _, sess := range sessions {
		if !sess.IsCompleted || sess.CompletedAt == nil {
			continue
		}
		stats.CompletedSessions++
		scoreSum += sess.Score
		days = append(days, sess.CompletedAt.UTC())
	}
	if stats.CompletedSessions > 0 {
		stats.AverageScore = round1(float64(scoreSum) / float64(stats.CompletedSessions))
	}
	if answers.Answered > 0 {
		stats.Accuracy = round1(float64(answers.Correct) / float64(answers.Answered) * 100)
	}
	stats.XP = answers.Correct*XPPerCorrectAnswer + int64(stats.CompletedSessions)*XPPerCompletedSession

	stats.CurrentStreak, stats.LongestStreak = Streaks(days, now)
	if len(days) > 0 {
		latest := days[0]
		for _, d := range days[1:] {
			if d.After(latest) {
				latest = d
			}
		}
		stats.LastActiveDate = latest.Format(time.DateOnly)
	}

	for i := len(sessions) - 1; i >= 0 && len(stats.RecentSessions) < recentSessionsLimit; i-- {
		stats.RecentSessions = append(stats.RecentSessions, sessions[i])
	}
	return stats
}

// Streaks считает текущую и максимальную серию дней (UTC) с завершенными сессиями.
// Текущая серия не прерывается, если последний активный день - сегодня или вчера.
func Streaks(activity []time.Time, now time.Time) (current, longest int) {
	if len(activity) == 0 {
		return 0, 0
	}
	seen := make(map[time.Time]struct{})
	var days []time.Time
	for _, t := range activity {
		d := truncateDay(t)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	today := truncateDay(now)
	last := days[len(days)-1]
	if gap := today.Sub(last); gap > 24*time.Hour {
		return 0, longest
	}
	return run, longest
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
