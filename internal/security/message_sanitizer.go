// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageSanitizerService は投稿されたメッセージ本文をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// メッセージはプレーンテキストとして扱うため、bluemondayの
// StrictPolicyですべてのHTMLマークアップを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizerService はメッセージ本文のサニタイズ機能のインターフェースを定義する。
// メッセージ保存前に使用される。
type MessageSanitizerService interface {
	// Sanitize はメッセージ本文からすべてのHTMLマークアップを除去し、
	// 前後の空白をトリムしたプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(text string) string
}

// messageSanitizer はMessageSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはタグを一切許可しない。script等のタグ要素は除去され、
// テキストコンテンツのみが残る。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はメッセージ本文をプレーンテキストにサニタイズする。
// bluemondayはエンティティをエスケープして返すため、
// 表示用のプレーンテキストに戻すためアンエスケープする。
func (s *messageSanitizer) Sanitize(text string) string {
	sanitized := s.policy.Sanitize(text)
	return strings.TrimSpace(html.UnescapeString(sanitized))
}
