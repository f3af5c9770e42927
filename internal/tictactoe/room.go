package tictactoe

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const MaxOccupants = 2

// MoveResult tells the caller what an accepted move did to the round.
type MoveResult int

const (
	RoundContinues MoveResult = iota
	RoundEnded
	MatchEnded
)

// Room owns the authoritative state of one game. All methods are safe for concurrent use;
// operations on one room are serialized and their events reach the outbox in the same order.
type Room struct {
	mu sync.RWMutex

	id          string
	instance    string
	board       entity.Board
	turn        entity.Mark
	roundOver   bool
	roundWinner entity.Mark
	occupants   []entity.Occupant
	closed      bool
	version     uint64

	outbox Outbox
}

func NewRoom(id string, outbox Outbox) *Room {
	if outbox == nil {
		outbox = Outboxes(nil)
	}

	return &Room{
		id:       id,
		instance: uuid.NewString(),
		turn:     entity.StartingMark,
		outbox:   outbox,
	}
}

func (that *Room) ID() string {
	return that.id
}

// Join seats a new occupant under the given id with the next free mark.
func (that *Room) Join(occupantID, displayName string, isHost bool) (entity.Occupant, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return entity.Occupant{}, fmt.Errorf("%w: room %s", apperror.ErrRoomClosed, that.id)
	}

	if that.indexOf(occupantID) >= 0 {
		return entity.Occupant{}, fmt.Errorf("%w: room %s", apperror.ErrAlreadyJoined, that.id)
	}

	if len(that.occupants) >= MaxOccupants {
		return entity.Occupant{}, fmt.Errorf("%w: room %s", apperror.ErrRoomFull, that.id)
	}

	occupant := entity.Occupant{
		ID:          occupantID,
		DisplayName: displayName,
		Mark:        that.nextMark(),
		IsHost:      isHost,
	}
	that.occupants = append(that.occupants, occupant)
	that.version++

	state := that.snapshot()
	that.post(entity.EventPlayerJoined, []string{occupantID}, occupantID, state)
	that.post(entity.EventStateUpdate, that.recipients(), "", state)

	return occupant, nil
}

// Move places the occupant's mark at index. Every rejection wraps apperror.ErrInvalidMove
// and leaves the room untouched.
func (that *Room) Move(occupantID string, index int) (MoveResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.validateMove(occupantID); err != nil {
		return RoundContinues, fmt.Errorf("%w: %w", apperror.ErrInvalidMove, err)
	}

	mover := &that.occupants[that.indexOf(occupantID)]
	if mover.Mark != that.turn {
		return RoundContinues, fmt.Errorf("%w: %w", apperror.ErrInvalidMove, apperror.ErrNotYourTurn)
	}

	board, err := entity.ApplyMove(that.board, index, mover.Mark)
	if err != nil {
		return RoundContinues, fmt.Errorf("%w: %w", apperror.ErrInvalidMove, err)
	}
	that.board = board

	result := RoundContinues
	kind := entity.EventMoveMade

	switch outcome := entity.DetectOutcome(board); outcome.Kind {
	case entity.OutcomeWin:
		that.roundOver = true
		that.roundWinner = outcome.Winner
		kind = entity.EventGameOver
		result = RoundEnded

		if loser := that.occupantByMark(outcome.Winner.Opponent()); loser != nil {
			loser.LossCount++
			if loser.LossCount >= entity.MatchLossLimit {
				kind = entity.EventMatchOver
				result = MatchEnded
			}
		}
	case entity.OutcomeDraw:
		that.roundOver = true
		kind = entity.EventGameOver
		result = RoundEnded
	default:
		that.turn = that.turn.Opponent()
	}

	that.version++
	that.post(kind, that.recipients(), "", that.snapshot())

	return result, nil
}

func (that *Room) validateMove(occupantID string) error {
	switch {
	case that.indexOf(occupantID) < 0:
		return apperror.ErrUnknownOccupant
	case that.matchOver():
		return apperror.ErrMatchOver
	case that.roundOver:
		return apperror.ErrRoundOver
	case len(that.occupants) < MaxOccupants:
		return apperror.ErrGameIsNotStarted
	default:
		return nil
	}
}

// ResetRound clears the board for a new round. Loss counts are kept.
// It is refused once the match is over; ResetMatch starts over instead.
func (that *Room) ResetRound() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return fmt.Errorf("%w: room %s", apperror.ErrRoomClosed, that.id)
	}

	if that.matchOver() {
		return fmt.Errorf("%w: room %s", apperror.ErrMatchOver, that.id)
	}

	that.resetRound()
	that.version++
	that.post(entity.EventGameReset, that.recipients(), "", that.snapshot())

	return nil
}

// ResetMatch clears the board and every loss count.
func (that *Room) ResetMatch() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return fmt.Errorf("%w: room %s", apperror.ErrRoomClosed, that.id)
	}

	that.resetRound()
	for i := range that.occupants {
		that.occupants[i].LossCount = 0
	}
	that.version++
	that.post(entity.EventMatchReset, that.recipients(), "", that.snapshot())

	return nil
}

func (that *Room) resetRound() {
	that.board = entity.Board{}
	that.turn = entity.StartingMark
	that.roundOver = false
	that.roundWinner = entity.MarkNone
}

// Leave removes the occupant and reports whether the roster is now empty.
// The remaining occupant keeps its mark.
func (that *Room) Leave(occupantID string) (bool, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	i := that.indexOf(occupantID)
	if i < 0 {
		return len(that.occupants) == 0, fmt.Errorf("%w: room %s", apperror.ErrUnknownOccupant, that.id)
	}

	that.occupants = slices.Delete(that.occupants, i, i+1)
	that.version++

	if len(that.occupants) > 0 {
		that.post(entity.EventStateUpdate, that.recipients(), "", that.snapshot())
	}

	return len(that.occupants) == 0, nil
}

// CloseIfEmpty marks an empty room closed so that no one can join it again.
// It reports false, and changes nothing, when the room still has occupants.
func (that *Room) CloseIfEmpty() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.occupants) > 0 {
		return false
	}

	if !that.closed {
		that.closed = true
		that.post(entity.EventRoomClosed, nil, "", that.snapshot())
	}

	return true
}

func (that *Room) Snapshot() entity.RoomState {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.snapshot()
}

func (that *Room) snapshot() entity.RoomState {
	state := entity.RoomState{
		RoomID:    that.id,
		Instance:  that.instance,
		Board:     that.board,
		Turn:      that.turn,
		Winner:    that.roundWinner,
		RoundOver: that.roundOver,
		Occupants: slices.Clone(that.occupants),
		MatchOver: that.matchOver(),
		Status:    that.status(),
		Version:   that.version,
	}

	if state.Occupants == nil {
		state.Occupants = []entity.Occupant{}
	}

	if winner := that.matchWinner(); winner != nil {
		copied := *winner
		state.MatchWinner = &copied
	}

	return state
}

func (that *Room) status() entity.RoomStatus {
	switch {
	case that.closed:
		return entity.StatusClosed
	case that.matchOver():
		return entity.StatusMatchOver
	case that.roundOver:
		return entity.StatusRoundOver
	case len(that.occupants) < MaxOccupants:
		return entity.StatusWaiting
	default:
		return entity.StatusInProgress
	}
}

func (that *Room) matchOver() bool {
	for _, occupant := range that.occupants {
		if occupant.LossCount >= entity.MatchLossLimit {
			return true
		}
	}
	return false
}

// matchWinner is the occupant whose opponent reached the loss limit.
func (that *Room) matchWinner() *entity.Occupant {
	for i := range that.occupants {
		for j := range that.occupants {
			if i != j && that.occupants[j].LossCount >= entity.MatchLossLimit {
				return &that.occupants[i]
			}
		}
	}
	return nil
}

func (that *Room) nextMark() entity.Mark {
	for _, mark := range entity.Marks {
		if that.occupantByMark(mark) == nil {
			return mark
		}
	}
	return entity.MarkNone
}

func (that *Room) occupantByMark(mark entity.Mark) *entity.Occupant {
	for i := range that.occupants {
		if that.occupants[i].Mark == mark {
			return &that.occupants[i]
		}
	}
	return nil
}

func (that *Room) indexOf(occupantID string) int {
	return slices.IndexFunc(that.occupants, func(occupant entity.Occupant) bool {
		return occupant.ID == occupantID
	})
}

func (that *Room) recipients() []string {
	ids := make([]string, 0, len(that.occupants))
	for _, occupant := range that.occupants {
		ids = append(ids, occupant.ID)
	}
	return ids
}

func (that *Room) post(kind entity.EventKind, recipients []string, occupantID string, state entity.RoomState) {
	that.outbox.Post(entity.Event{
		Kind:       kind,
		RoomID:     that.id,
		Recipients: recipients,
		OccupantID: occupantID,
		State:      state,
	})
}
