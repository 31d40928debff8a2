package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/auth"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/chat"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/persistence"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/strain"
)

var fixedNow = time.Date(2025, time.October, 27, 20, 0, 0, 0, time.UTC)

type stubTraining struct {
	workoutInput domain.LogWorkoutInput
	hikeInput    domain.LogHikeInput
	restInput    domain.LogRestDayInput
	replay       bool
	err          error

	listCursor *domain.Cursor
	listLimit  int
	workouts   []domain.WorkoutAggregate
	next       *domain.Cursor

	readiness *domain.ReadinessReport
	strain    *domain.StrainReport
	clients   []domain.ClientReport

	assigned  []string
	clientIDs []string
}

func (s *stubTraining) LogWorkout(_ context.Context, input domain.LogWorkoutInput) (*domain.WorkoutAggregate, bool, error) {
	s.workoutInput = input
	if s.err != nil {
		return nil, false, s.err
	}
	return &domain.WorkoutAggregate{RecordMeta: domain.RecordMeta{ID: "w-1"}}, s.replay, nil
}

func (s *stubTraining) LogHike(_ context.Context, input domain.LogHikeInput) (*domain.HikeAggregate, bool, error) {
	s.hikeInput = input
	if s.err != nil {
		return nil, false, s.err
	}
	return &domain.HikeAggregate{RecordMeta: domain.RecordMeta{ID: "h-1"}}, s.replay, nil
}

func (s *stubTraining) LogRestDay(_ context.Context, input domain.LogRestDayInput) (*domain.RestDayAggregate, bool, error) {
	s.restInput = input
	if s.err != nil {
		return nil, false, s.err
	}
	return &domain.RestDayAggregate{RecordMeta: domain.RecordMeta{ID: "r-1"}}, s.replay, nil
}

func (s *stubTraining) ListWorkouts(_ context.Context, _, _ string, cursor *domain.Cursor, limit int) ([]domain.WorkoutAggregate, *domain.Cursor, error) {
	s.listCursor = cursor
	s.listLimit = limit
	return s.workouts, s.next, s.err
}

func (s *stubTraining) Strain(_ context.Context, _, userID string) (*domain.StrainReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	report := *s.strain
	report.UserID = userID
	return &report, nil
}

func (s *stubTraining) Readiness(_ context.Context, _, userID string) (*domain.ReadinessReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	report := *s.readiness
	report.UserID = userID
	return &report, nil
}

func (s *stubTraining) ClientOverview(_ context.Context, _, _ string) ([]domain.ClientReport, error) {
	return s.clients, s.err
}

func (s *stubTraining) AssignClient(_ context.Context, _, trainerID, clientID, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.assigned = append(s.assigned, trainerID+"->"+clientID)
	return nil
}

func (s *stubTraining) HasClient(_ context.Context, _, _, clientID string) (bool, error) {
	for _, id := range s.clientIDs {
		if id == clientID {
			return true, nil
		}
	}
	return false, nil
}

type stubChat struct {
	participants []string
	sent         string
	readAt       time.Time
	unread       map[string]int
	history      []chat.Message
	err          error
}

func (s *stubChat) Open(_ context.Context, _ string, participants []string) (*chat.Conversation, error) {
	s.participants = participants
	if s.err != nil {
		return nil, s.err
	}
	return &chat.Conversation{ID: "conv-1", Participants: participants, CreatedAt: fixedNow}, nil
}

func (s *stubChat) Send(_ context.Context, _, conversationID, senderID, body string) (*chat.Message, error) {
	s.sent = body
	if s.err != nil {
		return nil, s.err
	}
	return &chat.Message{ID: "m-1", ConversationID: conversationID, SenderID: senderID, Body: body, SentAt: fixedNow}, nil
}

func (s *stubChat) MarkRead(_ context.Context, _, conversationID, userID string, at time.Time) (*chat.ReadMarker, error) {
	s.readAt = at
	if s.err != nil {
		return nil, s.err
	}
	return &chat.ReadMarker{ConversationID: conversationID, UserID: userID, ReadAt: fixedNow}, nil
}

func (s *stubChat) Unread(_ context.Context, _, _ string) (map[string]int, error) {
	return s.unread, s.err
}

func (s *stubChat) History(_ context.Context, _, _, _ string, _ int) ([]chat.Message, error) {
	return s.history, s.err
}

func newTestMux(training TrainingService, chatService ChatService) (*http.ServeMux, *test.Hook) {
	logger, hook := test.NewNullLogger()
	mux := http.NewServeMux()
	NewHandler(training, chatService, logger).RegisterRoutes(mux)
	return mux, hook
}

func claimsFor(subject, role string, scopes ...string) *auth.Claims {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return &auth.Claims{
		Subject:   subject,
		TenantID:  "tenant-1",
		Role:      role,
		Scopes:    set,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func serve(mux http.Handler, method, target string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Idempotency-Key", "key-1")
	if claims != nil {
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestLogWorkoutCreatedAndReplay(t *testing.T) {
	training := &stubTraining{}
	mux, _ := newTestMux(training, &stubChat{})
	claims := claimsFor("user-1", auth.RoleTrainee, auth.ScopeActivitiesWrite)

	body := LogWorkoutRequest{
		PerformedAt: fixedNow,
		Exercises: []ExerciseRequest{{
			Name:    "Bench Press",
			Muscles: []string{"chest"},
			Sets:    []SetRequest{{Reps: 5, WeightKg: 80, Completed: true}},
		}},
	}

	rr := serve(mux, http.MethodPost, "/v1/workouts", body, claims)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp CreateRecordResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "w-1", resp.ID)
	assert.Equal(t, domain.KindWorkout, resp.Kind)
	assert.False(t, resp.Replay)
	assert.Equal(t, "user-1", training.workoutInput.UserID)
	assert.Equal(t, "tenant-1", training.workoutInput.TenantID)
	assert.Equal(t, "key-1", training.workoutInput.IdempotencyKey)
	require.Len(t, training.workoutInput.Exercises, 1)
	assert.Equal(t, 1, training.workoutInput.Exercises[0].CompletedSets())

	training.replay = true
	rr = serve(mux, http.MethodPost, "/v1/workouts", body, claims)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Replay)
}

func TestLogWorkoutRejectsBadInput(t *testing.T) {
	mux, _ := newTestMux(&stubTraining{}, &stubChat{})
	claims := claimsFor("user-1", auth.RoleTrainee, auth.ScopeActivitiesWrite)

	rr := serve(mux, http.MethodPost, "/v1/workouts", LogWorkoutRequest{PerformedAt: fixedNow}, claims)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(mux, http.MethodPost, "/v1/workouts", map[string]string{"unexpected": "x"}, claims)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(mux, http.MethodPost, "/v1/workouts", LogWorkoutRequest{
		PerformedAt: fixedNow,
		Exercises:   []ExerciseRequest{{Name: "Row", Sets: []SetRequest{{Reps: -1}}}},
	}, claims)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestScopesAndOwnershipEnforced(t *testing.T) {
	training := &stubTraining{readiness: &domain.ReadinessReport{Score: 100}}
	mux, _ := newTestMux(training, &stubChat{})

	rr := serve(mux, http.MethodGet, "/v1/readiness", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(mux, http.MethodGet, "/v1/readiness", nil, claimsFor("user-1", auth.RoleTrainee, auth.ScopeChat))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(mux, http.MethodGet, "/v1/readiness?user_id=user-2", nil, claimsFor("user-1", auth.RoleTrainee, auth.ScopeActivitiesRead))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	coach := claimsFor("coach", auth.RoleTrainer, auth.ScopeActivitiesRead)
	rr = serve(mux, http.MethodGet, "/v1/readiness?user_id=user-2", nil, coach)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	training.clientIDs = []string{"user-2"}
	rr = serve(mux, http.MethodGet, "/v1/readiness?user_id=user-2", nil, coach)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(mux, http.MethodGet, "/v1/readiness?user_id=user-3", nil, claimsFor("ops", auth.RoleAdmin, auth.ScopeActivitiesRead))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLogHikeAndRestDay(t *testing.T) {
	training := &stubTraining{}
	mux, _ := newTestMux(training, &stubChat{})
	claims := claimsFor("hiker-1", auth.RoleHiker, auth.ScopeActivitiesWrite)

	rr := serve(mux, http.MethodPost, "/v1/hikes", LogHikeRequest{StartedAt: fixedNow, DurationMin: 0}, claims)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(mux, http.MethodPost, "/v1/hikes", LogHikeRequest{
		StartedAt:     fixedNow,
		Trail:         "Ridge Loop",
		DurationMin:   120,
		DistanceKm:    9.5,
		ActiveMuscles: []string{"quads", "calves"},
	}, claims)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, 120, training.hikeInput.DurationMin)
	assert.Equal(t, "hiker-1", training.hikeInput.UserID)

	rr = serve(mux, http.MethodPost, "/v1/rest-days", LogRestDayRequest{Note: "deload"}, claims)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.True(t, training.restInput.Day.IsZero())
	assert.Equal(t, "deload", training.restInput.Note)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "invalid", err: domain.ErrInvalidRecord, status: http.StatusBadRequest},
		{name: "not found", err: domain.ErrNotFound, status: http.StatusNotFound},
		{name: "internal", err: errors.New("connection refused"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux, hook := newTestMux(&stubTraining{err: tc.err}, &stubChat{})
			rr := serve(mux, http.MethodPost, "/v1/rest-days", LogRestDayRequest{}, claimsFor("user-1", auth.RoleTrainee, auth.ScopeActivitiesWrite))
			assert.Equal(t, tc.status, rr.Code)

			var payload map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
			assert.NotEmpty(t, payload["type"])

			if tc.status == http.StatusInternalServerError {
				require.NotNil(t, hook.LastEntry())
				assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
				assert.Equal(t, "internal error", payload["detail"])
			} else {
				assert.Empty(t, hook.AllEntries())
			}
		})
	}
}

func TestListWorkoutsPaginates(t *testing.T) {
	next := &domain.Cursor{At: fixedNow.Add(-time.Hour), ID: "w-2"}
	training := &stubTraining{
		workouts: []domain.WorkoutAggregate{{
			RecordMeta:  domain.RecordMeta{ID: "w-1", UserID: "user-1", Version: "v1"},
			PerformedAt: fixedNow,
			Exercises:   []strain.Exercise{{Name: "Squat", Sets: []strain.Set{{Completed: true}, {Completed: false}}}},
		}},
		next: next,
	}
	mux, _ := newTestMux(training, &stubChat{})
	claims := claimsFor("user-1", auth.RoleTrainee, auth.ScopeActivitiesRead)

	rr := serve(mux, http.MethodGet, "/v1/workouts?limit=500", nil, claims)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, maxPageSize, training.listLimit)
	assert.Nil(t, training.listCursor)

	var resp ListWorkoutsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.Items[0].CompletedSets)
	assert.Equal(t, persistence.EncodeCursor(next), resp.NextCursor)

	rr = serve(mux, http.MethodGet, "/v1/workouts?cursor="+resp.NextCursor, nil, claims)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, training.listCursor)
	assert.Equal(t, "w-2", training.listCursor.ID)
	assert.Equal(t, defaultPageSize, training.listLimit)

	rr = serve(mux, http.MethodGet, "/v1/workouts?cursor=%25%25%25", nil, claims)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReadinessAndStrainReports(t *testing.T) {
	training := &stubTraining{
		readiness: &domain.ReadinessReport{Score: 97, Recommendation: strain.Recommend(strain.DefaultRecommendationThresholds(), 97), TotalStrain: 0.3},
		strain:    &domain.StrainReport{Intensity: strain.IntensityMap{"quads": 0.3}, Workouts: 1},
	}
	mux, _ := newTestMux(training, &stubChat{})
	claims := claimsFor("user-1", auth.RoleTrainee, auth.ScopeActivitiesRead)

	rr := serve(mux, http.MethodGet, "/v1/readiness", nil, claims)
	require.Equal(t, http.StatusOK, rr.Code)
	var readiness ReadinessResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &readiness))
	assert.Equal(t, 97, readiness.Score)
	assert.Equal(t, "user-1", readiness.UserID)
	assert.False(t, readiness.NoData)

	rr = serve(mux, http.MethodGet, "/v1/strain", nil, claims)
	require.Equal(t, http.StatusOK, rr.Code)
	var report StrainResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.InDelta(t, 0.3, report.Intensity["quads"], 1e-9)
	assert.Equal(t, 1, report.Workouts)
}

func TestTrainerClients(t *testing.T) {
	last := fixedNow.Add(-time.Hour)
	training := &stubTraining{
		clients: []domain.ClientReport{{
			Client:        domain.Client{ID: "client-1", DisplayName: "Sam"},
			ClientSummary: strain.ClientSummary{LastActiveAt: &last, Status: strain.ClientActive, MuscleLoad: 25, TotalActivities: 2},
		}},
	}
	mux, _ := newTestMux(training, &stubChat{})
	trainer := claimsFor("coach", auth.RoleTrainer, auth.ScopeClientsRead, auth.ScopeClientsWrite)

	rr := serve(mux, http.MethodGet, "/v1/trainer/clients", nil, trainer)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp ClientsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "client-1", resp.Items[0].ClientID)
	assert.Equal(t, strain.ClientActive, resp.Items[0].Status)
	assert.Equal(t, 25, resp.Items[0].MuscleLoad)

	rr = serve(mux, http.MethodPut, "/v1/trainer/clients/client-2", AssignClientRequest{DisplayName: "Alex"}, trainer)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"coach->client-2"}, training.assigned)

	trainee := claimsFor("user-1", auth.RoleTrainee, auth.ScopeClientsWrite)
	rr = serve(mux, http.MethodPut, "/v1/trainer/clients/client-3", nil, trainee)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestChatEndpoints(t *testing.T) {
	chatService := &stubChat{
		unread:  map[string]int{"conv-1": 2, "conv-2": 1},
		history: []chat.Message{{ID: "m-1", ConversationID: "conv-1", SenderID: "coach", Body: "hi", SentAt: fixedNow}},
	}
	mux, _ := newTestMux(&stubTraining{}, chatService)
	claims := claimsFor("user-1", auth.RoleTrainee, auth.ScopeChat)

	rr := serve(mux, http.MethodPost, "/v1/conversations", OpenConversationRequest{Participants: []string{"coach"}}, claims)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.ElementsMatch(t, []string{"coach", "user-1"}, chatService.participants)

	rr = serve(mux, http.MethodPost, "/v1/conversations/conv-1/messages", SendMessageRequest{Body: "see you at 6"}, claims)
	require.Equal(t, http.StatusCreated, rr.Code)
	var msg chat.Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msg))
	assert.Equal(t, "conv-1", msg.ConversationID)
	assert.Equal(t, "user-1", msg.SenderID)

	rr = serve(mux, http.MethodGet, "/v1/conversations/conv-1/messages?limit=10", nil, claims)
	require.Equal(t, http.StatusOK, rr.Code)
	var history MessagesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	assert.Len(t, history.Items, 1)

	rr = serve(mux, http.MethodPost, "/v1/conversations/conv-1/read", nil, claims)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, chatService.readAt.IsZero())

	rr = serve(mux, http.MethodGet, "/v1/conversations/unread", nil, claims)
	require.Equal(t, http.StatusOK, rr.Code)
	var unread UnreadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &unread))
	assert.Equal(t, 3, unread.Total)
	assert.Equal(t, 2, unread.Conversations["conv-1"])
}

func TestChatErrorsMapToStatus(t *testing.T) {
	claims := claimsFor("user-1", auth.RoleTrainee, auth.ScopeChat)

	mux, _ := newTestMux(&stubTraining{}, &stubChat{err: chat.ErrNotParticipant})
	rr := serve(mux, http.MethodPost, "/v1/conversations/conv-9/messages", SendMessageRequest{Body: "hi"}, claims)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	mux, _ = newTestMux(&stubTraining{}, &stubChat{err: chat.ErrConversationNotFound})
	rr = serve(mux, http.MethodGet, "/v1/conversations/conv-9/messages", nil, claims)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	mux, _ = newTestMux(&stubTraining{}, &stubChat{err: chat.ErrInvalidMessage})
	rr = serve(mux, http.MethodPost, "/v1/conversations/conv-1/messages", SendMessageRequest{Body: "  "}, claims)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthz(t *testing.T) {
	mux, _ := newTestMux(&stubTraining{}, &stubChat{})
	rr := serve(mux, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}
