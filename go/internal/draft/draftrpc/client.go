package draftrpc

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/identity"
)

// Client calls the DraftService as a single user.
type Client struct {
	startDraft           *connect.Client[StartDraftRequest, StartDraftResponse]
	endDraft             *connect.Client[EndDraftRequest, EndDraftResponse]
	draftPlayer          *connect.Client[DraftPlayerRequest, DraftPlayerResponse]
	getDraftState        *connect.Client[GetDraftStateRequest, GetDraftStateResponse]
	listAvailablePlayers *connect.Client[ListAvailablePlayersRequest, ListAvailablePlayersResponse]
}

// NewClient creates a DraftService client for baseURL acting as userID.
func NewClient(httpClient connect.HTTPClient, baseURL string, userID uuid.UUID, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{
		connect.WithCodec(Codec{}),
		connect.WithInterceptors(identity.NewClientInterceptor(userID)),
	}, opts...)

	return &Client{
		startDraft:           connect.NewClient[StartDraftRequest, StartDraftResponse](httpClient, baseURL+StartDraftProcedure, opts...),
		endDraft:             connect.NewClient[EndDraftRequest, EndDraftResponse](httpClient, baseURL+EndDraftProcedure, opts...),
		draftPlayer:          connect.NewClient[DraftPlayerRequest, DraftPlayerResponse](httpClient, baseURL+DraftPlayerProcedure, opts...),
		getDraftState:        connect.NewClient[GetDraftStateRequest, GetDraftStateResponse](httpClient, baseURL+GetDraftStateProcedure, opts...),
		listAvailablePlayers: connect.NewClient[ListAvailablePlayersRequest, ListAvailablePlayersResponse](httpClient, baseURL+ListAvailablePlayersProcedure, opts...),
	}
}

func (c *Client) StartDraft(ctx context.Context, req *StartDraftRequest) (*StartDraftResponse, error) {
	res, err := c.startDraft.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) EndDraft(ctx context.Context, req *EndDraftRequest) (*EndDraftResponse, error) {
	res, err := c.endDraft.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) DraftPlayer(ctx context.Context, req *DraftPlayerRequest) (*DraftPlayerResponse, error) {
	res, err := c.draftPlayer.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) GetDraftState(ctx context.Context, req *GetDraftStateRequest) (*GetDraftStateResponse, error) {
	res, err := c.getDraftState.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) ListAvailablePlayers(ctx context.Context, req *ListAvailablePlayersRequest) (*ListAvailablePlayersResponse, error) {
	res, err := c.listAvailablePlayers.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}
