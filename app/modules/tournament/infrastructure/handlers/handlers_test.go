package tournamenthandlers

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tournamentservice "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/application"
	tournamentdb "github.com/wukrit/fightrise-bot-sub001/app/modules/tournament/infrastructure/repositories"
	tournamentevents "github.com/wukrit/fightrise-bot-sub001/pkg/events/tournament"
	"github.com/wukrit/fightrise-bot-sub001/pkg/handlerwrapper"
	"github.com/wukrit/fightrise-bot-sub001/pkg/results"
)

func newTestHandlers(svc tournamentservice.Service) *TournamentHandlers {
	return NewTournamentHandlers(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTournamentHandlers_HandleSetupRequested(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name      string
		payload   *tournamentevents.SetupRequestedPayloadV1
		setupFake func(*FakeTournamentService)
		wantErr   bool
		wantTopic string
	}{
		{
			name:    "success",
			payload: &tournamentevents.SetupRequestedPayloadV1{GuildID: "g-1", ChannelID: "c-1", Slug: "evo"},
			setupFake: func(f *FakeTournamentService) {
				f.SetupTournamentFunc = func(_ context.Context, slug, guildID, channelID string) (results.OperationResult[tournamentservice.SetupResult, error], error) {
					assert.Equal(t, "evo", slug)
					assert.Equal(t, "g-1", guildID)
					assert.Equal(t, "c-1", channelID)
					return results.SuccessResult[tournamentservice.SetupResult, error](tournamentservice.SetupResult{
						TournamentID: id, Name: "EVO", Phase: tournamentdb.PhaseRegistrationOpen, EventCount: 3, PollScheduled: true,
					}), nil
				}
			},
			wantTopic: tournamentevents.SetupSucceededV1,
		},
		{
			name:    "unknown slug",
			payload: &tournamentevents.SetupRequestedPayloadV1{GuildID: "g-1", ChannelID: "c-1", Slug: "ghost"},
			setupFake: func(f *FakeTournamentService) {
				f.SetupTournamentFunc = func(context.Context, string, string, string) (results.OperationResult[tournamentservice.SetupResult, error], error) {
					return results.FailureResult[tournamentservice.SetupResult, error](tournamentservice.ErrRemoteTournamentNotFound), nil
				}
			},
			wantTopic: tournamentevents.SetupFailedV1,
		},
		{
			name:    "infrastructure error",
			payload: &tournamentevents.SetupRequestedPayloadV1{GuildID: "g-1", ChannelID: "c-1", Slug: "evo"},
			setupFake: func(f *FakeTournamentService) {
				f.SetupTournamentFunc = func(context.Context, string, string, string) (results.OperationResult[tournamentservice.SetupResult, error], error) {
					return results.OperationResult[tournamentservice.SetupResult, error]{}, context.DeadlineExceeded
				}
			},
			wantErr: true,
		},
		{name: "nil payload", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := NewFakeTournamentService()
			if tt.setupFake != nil {
				tt.setupFake(fake)
			}

			res, err := newTestHandlers(fake).HandleSetupRequested(context.Background(), tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.Equal(t, tt.wantTopic, res[0].Topic)
			assert.Equal(t, "g-1", res[0].Metadata[handlerwrapper.MetadataGuildID])
		})
	}
}

func TestTournamentHandlers_HandlePollRequested(t *testing.T) {
	fake := NewFakeTournamentService()
	h := newTestHandlers(fake)

	res, err := h.HandlePollRequested(context.Background(), &tournamentevents.PollRequestedPayloadV1{TournamentID: "not-a-uuid"})
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Empty(t, fake.Trace())

	res, err = h.HandlePollRequested(context.Background(), &tournamentevents.PollRequestedPayloadV1{TournamentID: uuid.NewString()})
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Equal(t, []string{"RequestPoll"}, fake.Trace())
}

func TestTournamentHandlers_HandleCancelRequested(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		failure   error
		wantTopic string
		wantTrace []string
	}{
		{name: "cancelled", id: uuid.NewString(), wantTopic: tournamentevents.CancelledV1, wantTrace: []string{"CancelTournament"}},
		{name: "already cancelled", id: uuid.NewString(), failure: tournamentservice.ErrAlreadyCancelled, wantTopic: tournamentevents.CancelFailedV1, wantTrace: []string{"CancelTournament"}},
		{name: "malformed id", id: "x", wantTopic: tournamentevents.CancelFailedV1, wantTrace: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := NewFakeTournamentService()
			if tt.failure != nil {
				fake.CancelTournamentFunc = func(context.Context, uuid.UUID) (results.OperationResult[uuid.UUID, error], error) {
					return results.FailureResult[uuid.UUID, error](tt.failure), nil
				}
			}

			res, err := newTestHandlers(fake).HandleCancelRequested(context.Background(), &tournamentevents.CancelRequestedPayloadV1{GuildID: "g-1", TournamentID: tt.id})
			require.NoError(t, err)
			require.Len(t, res, 1)
			assert.Equal(t, tt.wantTopic, res[0].Topic)
			assert.Equal(t, tt.wantTrace, fake.Trace())
		})
	}
}
