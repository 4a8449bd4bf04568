package model

// User は外部IDプロバイダーが認証したユーザーを表す。
// リクエストごとにプロバイダーから取得する導出データであり、
// このプロセスでは1リクエストの寿命を超えて保持しない。
type User struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

// DisplayName はUIに表示するユーザー名を返す。
// 姓名が未設定の場合はメールアドレスにフォールバックする。
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// Organization は外部IDプロバイダーが管理するテナント（組織）を表す。
// プロバイダーでの作成に成功した後、ユーザーIDをキーとして
// プロセスメモリ上のレジストリに保持される。
type Organization struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Domains []OrganizationDomain `json:"domains"`
}

// OrganizationDomain は組織に紐づくメールドメインとその検証状態を表す。
type OrganizationDomain struct {
	Domain string `json:"domain"`
	State  string `json:"state"`
}

// ドメイン検証状態。プロバイダーのcontractに従う。
const (
	DomainStatePending  = "pending"
	DomainStateVerified = "verified"
)
