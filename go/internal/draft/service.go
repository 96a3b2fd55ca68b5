package draft

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/draft/draftrpc"
	"github.com/mcdev12/livedraft/go/internal/draft/events"
	"github.com/mcdev12/livedraft/go/internal/identity"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// DraftApp defines what the service layer needs from the draft application
type DraftApp interface {
	StartDraft(ctx context.Context, leagueID, requesterID uuid.UUID) (models.DraftSession, error)
	EndDraft(ctx context.Context, leagueID, requesterID uuid.UUID) (models.DraftSession, error)
	DraftPlayer(ctx context.Context, leagueID, userID, playerID uuid.UUID) (PickResult, error)
	GetDraftState(ctx context.Context, leagueID uuid.UUID) (events.SnapshotPayload, int64, error)
	ListAvailablePlayers(ctx context.Context, leagueID uuid.UUID) ([]models.Player, error)
}

// Service implements the DraftService connect procedures
type Service struct {
	app DraftApp
}

// NewService creates a new draft connect service
func NewService(app DraftApp) *Service {
	return &Service{app: app}
}

// NewServiceHandler builds an HTTP handler serving every DraftService
// procedure. It returns the path prefix to mount it on.
func NewServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{
		connect.WithCodec(draftrpc.Codec{}),
		connect.WithInterceptors(identity.NewInterceptor()),
	}, opts...)

	mux := http.NewServeMux()
	mux.Handle(draftrpc.StartDraftProcedure, connect.NewUnaryHandler(draftrpc.StartDraftProcedure, svc.StartDraft, opts...))
	mux.Handle(draftrpc.EndDraftProcedure, connect.NewUnaryHandler(draftrpc.EndDraftProcedure, svc.EndDraft, opts...))
	mux.Handle(draftrpc.DraftPlayerProcedure, connect.NewUnaryHandler(draftrpc.DraftPlayerProcedure, svc.DraftPlayer, opts...))
	mux.Handle(draftrpc.GetDraftStateProcedure, connect.NewUnaryHandler(draftrpc.GetDraftStateProcedure, svc.GetDraftState, opts...))
	mux.Handle(draftrpc.ListAvailablePlayersProcedure, connect.NewUnaryHandler(draftrpc.ListAvailablePlayersProcedure, svc.ListAvailablePlayers, opts...))
	return "/" + draftrpc.ServiceName + "/", mux
}

// StartDraft starts the league's draft for the calling commissioner
func (s *Service) StartDraft(ctx context.Context, req *connect.Request[draftrpc.StartDraftRequest]) (*connect.Response[draftrpc.StartDraftResponse], error) {
	leagueID, err := parseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	userID, err := requester(ctx)
	if err != nil {
		return nil, err
	}

	session, err := s.app.StartDraft(ctx, leagueID, userID)
	if err != nil {
		return nil, ToConnectError(err)
	}
	return connect.NewResponse(&draftrpc.StartDraftResponse{Session: draftrpc.SessionFromModel(session)}), nil
}

// EndDraft force-ends the league's draft for the calling commissioner
func (s *Service) EndDraft(ctx context.Context, req *connect.Request[draftrpc.EndDraftRequest]) (*connect.Response[draftrpc.EndDraftResponse], error) {
	leagueID, err := parseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	userID, err := requester(ctx)
	if err != nil {
		return nil, err
	}

	session, err := s.app.EndDraft(ctx, leagueID, userID)
	if err != nil {
		return nil, ToConnectError(err)
	}
	return connect.NewResponse(&draftrpc.EndDraftResponse{Session: draftrpc.SessionFromModel(session)}), nil
}

// DraftPlayer commits the caller's pick
func (s *Service) DraftPlayer(ctx context.Context, req *connect.Request[draftrpc.DraftPlayerRequest]) (*connect.Response[draftrpc.DraftPlayerResponse], error) {
	leagueID, err := parseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	playerID, err := parseID("player_id", req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}
	userID, err := requester(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.app.DraftPlayer(ctx, leagueID, userID, playerID)
	if err != nil {
		return nil, ToConnectError(err)
	}
	return connect.NewResponse(&draftrpc.DraftPlayerResponse{
		Pick:             pickInfo(res.Session, res.Pick, res.Player),
		CurrentTurnIndex: res.CurrentTurnIndex,
		Status:           string(res.Status),
	}), nil
}

// GetDraftState returns the league's snapshot
func (s *Service) GetDraftState(ctx context.Context, req *connect.Request[draftrpc.GetDraftStateRequest]) (*connect.Response[draftrpc.GetDraftStateResponse], error) {
	leagueID, err := parseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}

	state, seq, err := s.app.GetDraftState(ctx, leagueID)
	if err != nil {
		return nil, ToConnectError(err)
	}
	return connect.NewResponse(&draftrpc.GetDraftStateResponse{State: state, Seq: seq}), nil
}

// ListAvailablePlayers returns the league's undrafted players
func (s *Service) ListAvailablePlayers(ctx context.Context, req *connect.Request[draftrpc.ListAvailablePlayersRequest]) (*connect.Response[draftrpc.ListAvailablePlayersResponse], error) {
	leagueID, err := parseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}

	players, err := s.app.ListAvailablePlayers(ctx, leagueID)
	if err != nil {
		return nil, ToConnectError(err)
	}
	return connect.NewResponse(&draftrpc.ListAvailablePlayersResponse{Players: players}), nil
}

// ErrorCode maps a draft error to its connect code.
func ErrorCode(err error) connect.Code {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return connect.CodeInvalidArgument
	case errors.Is(err, ErrPlayerAlreadyDrafted):
		return connect.CodeAlreadyExists
	case IsStateConflict(err):
		return connect.CodeFailedPrecondition
	case errors.Is(err, ErrNotCommissioner):
		return connect.CodePermissionDenied
	case errors.Is(err, ErrUnavailable):
		return connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeInternal
	}
}

// ToConnectError wraps err with the connect code for its class.
func ToConnectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	return connect.NewError(ErrorCode(err), err)
}

func parseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: %s: %v", ErrInvalidInput, field, err))
	}
	return id, nil
}

func requester(ctx context.Context) (uuid.UUID, error) {
	id, ok := identity.UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, connect.NewError(connect.CodeUnauthenticated, identity.ErrMissingUserID)
	}
	return id, nil
}
