package entity

type MemberRole string

const (
	RoleMember  MemberRole = "member"
	RoleManager MemberRole = "manager"
)

type Member struct {
	Base
	UserID         string     `db:"user_id"`
	Role           MemberRole `db:"role"`
	CanWriteReview bool       `db:"can_write_review"`
}
