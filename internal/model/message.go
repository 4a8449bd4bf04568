// Package model はドメインモデルを定義する。
package model

import "time"

// Message は掲示板の1件のメッセージを表す。
// 作成後は削除以外の変更を行わないイミュータブルなレコード。
// 投稿者情報は作成時点のスナップショットとして非正規化して保持し、
// ユーザーレコードとの整合性は保証しない。
type Message struct {
	ID            int       `json:"id"`
	Text          string    `json:"text"`
	UserID        string    `json:"userId,omitempty"`
	UserFirstName string    `json:"userFirstName,omitempty"`
	UserLastName  string    `json:"userLastName,omitempty"`
	UserEmail     string    `json:"userEmail,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// MessageAuthor はメッセージ作成時に非正規化する投稿者情報を表す。
// 未認証経路では使用しない（認証必須ルートでのみメッセージを作成できる）。
type MessageAuthor struct {
	UserID    string
	FirstName string
	LastName  string
	Email     string
}
