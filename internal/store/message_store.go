// Package store はプロセスメモリ上のメッセージコレクションを提供する。
//
// 永続化は行わない。状態はプロセスの再起動でリセットされ、
// 複数インスタンス間での共有もサポートしない。
package store

import (
	"sync"
	"time"

	"github.com/hitoshi/msgboard/internal/model"
)

// MessageStore は挿入順を保持するメッセージのインメモリストア。
// プロセス起動時に1つ構築し、ハンドラーに注入して使用する。
// net/httpはリクエストごとにgoroutineを起動するため、変更はmutexで保護する。
type MessageStore struct {
	mu       sync.Mutex
	messages []model.Message
	nextID   int
	now      func() time.Time
}

// NewMessageStore は初期メッセージ2件をシードしたMessageStoreを生成する。
func NewMessageStore() *MessageStore {
	s := &MessageStore{
		nextID: 1,
		now:    time.Now,
	}
	s.Create("Welcome to your full stack app!", nil)
	s.Create("This is a basic example", nil)
	return s
}

// List は現存する全メッセージを挿入順で返す。
// 返却するスライスはコピーであり、呼び出し側で安全に保持できる。
func (s *MessageStore) List() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Create はメッセージを作成して末尾に追加し、作成されたレコードを返す。
// IDは単調増加カウンターから採番する。削除が発生してもIDは再利用しない
// （元実装のcount+1方式はID衝突を起こすため、採番仕様を変更している）。
// authorがnilでない場合、投稿者情報を作成時点のスナップショットとして保持する。
func (s *MessageStore) Create(text string, author *model.MessageAuthor) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := model.Message{
		ID:        s.nextID,
		Text:      text,
		Timestamp: s.now().UTC(),
	}
	if author != nil {
		msg.UserID = author.UserID
		msg.UserFirstName = author.FirstName
		msg.UserLastName = author.LastName
		msg.UserEmail = author.Email
	}

	s.nextID++
	s.messages = append(s.messages, msg)
	return msg
}

// Delete は指定IDのメッセージを削除する。
// 該当IDが存在しない場合は何もしない（エラーにしない）。
func (s *MessageStore) Delete(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, msg := range s.messages {
		if msg.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// Count は現存するメッセージ数を返す。テストおよびメトリクス用。
func (s *MessageStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
