package roomrpc

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"github.com/egoritak/yesbut/go/internal/game"
	"github.com/egoritak/yesbut/go/internal/room"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully-qualified name of the room inspection service
	ServiceName = "yesbut.v1.RoomService"

	ListRoomsProcedure = "/" + ServiceName + "/ListRooms"
	GetRoomProcedure   = "/" + ServiceName + "/GetRoom"
)

var errRoomNotFound = errors.New("room not found")

// RoomLister defines what the service needs from the room registry
type RoomLister interface {
	Rooms() []game.Summary
	Room(code string) (game.Summary, bool)
}

// Service implements the read-only room inspection RPCs. Requests and
// responses are google.protobuf.Struct messages.
type Service struct {
	rooms RoomLister
}

// NewService creates a new room inspection service
func NewService(rooms RoomLister) *Service {
	return &Service{
		rooms: rooms,
	}
}

// ListRooms returns a summary of every open room
func (s *Service) ListRooms(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	summaries := s.rooms.Rooms()
	rooms := make([]any, 0, len(summaries))
	for _, sum := range summaries {
		rooms = append(rooms, summaryToMap(sum))
	}

	msg, err := structpb.NewStruct(map[string]any{
		"rooms": rooms,
		"total": len(summaries),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// GetRoom returns the summary of the room named by the "code" field
func (s *Service) GetRoom(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	code := room.NormalizeCode(req.Msg.GetFields()["code"].GetStringValue())
	if code == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("code is required"))
	}

	sum, ok := s.rooms.Room(code)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, errRoomNotFound)
	}

	msg, err := structpb.NewStruct(map[string]any{
		"room": summaryToMap(sum),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// NewHandler builds an HTTP handler serving every procedure of the service
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	listRooms := connect.NewUnaryHandler(ListRoomsProcedure, svc.ListRooms, opts...)
	getRoom := connect.NewUnaryHandler(GetRoomProcedure, svc.GetRoom, opts...)

	return "/" + ServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ListRoomsProcedure:
			listRooms.ServeHTTP(w, r)
		case GetRoomProcedure:
			getRoom.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func summaryToMap(sum game.Summary) map[string]any {
	players := make([]any, 0, len(sum.Players))
	for _, p := range sum.Players {
		players = append(players, map[string]any{
			"id":        p.ID,
			"name":      p.Name,
			"score":     p.Score,
			"handCount": p.HandCount,
		})
	}

	return map[string]any{
		"code":       sum.Code,
		"phase":      sum.Phase,
		"adminId":    sum.AdminID,
		"players":    players,
		"finalRound": sum.FinalRound,
		"revealed":   sum.Revealed,
		"tableSize":  sum.TableSize,
		"deckLeft":   sum.DeckLeft,
		"retired":    sum.Retired,
		"party":      int64(sum.Party),
	}
}
