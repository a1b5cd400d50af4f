package usecase

import "github.com/devricklin/telegram-session-relay/internal/biz/domain"

// Coalesce groups one poll cycle's admitted updates into turns, one per chat.
//
// Chats keep the order of their first fragment and fragments keep arrival
// order. The window is the poll cycle plus its zero-wait follow-up poll, so a
// fragment delayed past that window becomes a turn of its own.
func Coalesce(updates []domain.Update) []*domain.Turn {
	var turns []*domain.Turn
	byChat := make(map[int64]*domain.Turn)

	for _, u := range updates {
		if u.Text == "" {
			continue
		}
		turn, ok := byChat[u.ChatID]
		if !ok {
			turn = &domain.Turn{ChatID: u.ChatID, Sender: u.SenderName}
			byChat[u.ChatID] = turn
			turns = append(turns, turn)
		}
		turn.Fragments = append(turn.Fragments, u.Text)
	}
	return turns
}
