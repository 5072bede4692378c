package school

import (
	"math"
	"time"
)

// Roles
const (
	RoleDeveloper     = "developer"
	RoleAdmin         = "admin"
	RoleAdministrator = "administrator"
	RoleAccountant    = "accountant"
	RoleTeacher       = "teacher"
	RoleStudent       = "student"
	RoleIntern        = "intern"
	RoleGuest         = "guest"
)

// User statuses
const (
	StatusActive     = "active"
	StatusPending    = "pending"
	StatusDroppedOut = "dropped_out"
)

// Invoice statuses
const (
	InvoiceUnpaid        = "unpaid"
	InvoicePaid          = "paid"
	InvoicePartial       = "partial"
	InvoicePendingDelete = "pending_delete"
)

// FeeRecord statuses
const (
	FeePaid          = "paid"
	FeePendingEdit   = "pending_edit"
	FeePendingDelete = "pending_delete"
)

// ExamSession statuses
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// Notice audiences
const (
	AudienceAll      = "all"
	AudienceStudents = "students"
	AudienceTeachers = "teachers"
)

var (
	AllRoles = []string{
		RoleDeveloper, RoleAdmin, RoleAdministrator, RoleAccountant,
		RoleTeacher, RoleStudent, RoleIntern, RoleGuest,
	}
	AllAudiences = []string{AudienceAll, AudienceStudents, AudienceTeachers}

	rolePriorities = map[string]int{
		RoleDeveloper:     40,
		RoleAdmin:         30,
		RoleAdministrator: 25,
		RoleAccountant:    20,
		RoleTeacher:       15,
		RoleStudent:       10,
		RoleIntern:        5,
		RoleGuest:         1,
	}

	// approvableRoles maps an approver role to the roles whose pending
	// registrations it may approve or reject.
	approvableRoles = map[string][]string{
		RoleDeveloper:     {RoleAdmin, RoleAdministrator, RoleAccountant, RoleTeacher, RoleStudent, RoleIntern, RoleGuest},
		RoleAdmin:         {RoleAdministrator, RoleAccountant, RoleTeacher, RoleStudent, RoleIntern, RoleGuest},
		RoleAdministrator: {RoleTeacher, RoleStudent},
	}

	// financeApproverRoles may resolve pending_delete/pending_edit requests on
	// invoices and fee records; accountants may only raise them.
	financeApproverRoles = []string{RoleDeveloper, RoleAdmin, RoleAdministrator}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

// CanApproveRole reports whether a user with `approver` role may resolve a
// pending registration of `role`.
func CanApproveRole(approver, role string) bool {
	for _, r := range approvableRoles[approver] {
		if r == role {
			return true
		}
	}
	return false
}

// CanApproveFinance reports whether `role` may resolve financial
// delete/edit requests.
func CanApproveFinance(role string) bool {
	for _, r := range financeApproverRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Password     string    `json:"password,omitempty"` // stored in plaintext
	Role         string    `json:"role"`
	AllowedRoles []string  `json:"allowedRoles,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// student fields
	ClassID   string   `json:"classId,omitempty"`
	Section   string   `json:"section,omitempty"`
	AnnualFee *float64 `json:"annualFee,omitempty"`
	Discount  float64  `json:"discount,omitempty"`
	TotalPaid float64  `json:"totalPaid,omitempty"`

	// teacher fields
	Subjects []string `json:"subjects,omitempty"`
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsActive() bool  { return u.Status == StatusActive }

// PayableFee is annualFee − discount; zero when no annual fee is set.
func (u *User) PayableFee() float64 {
	if u.AnnualFee == nil {
		return 0
	}
	return *u.AnnualFee - u.Discount
}

func (u *User) HasAllowedRole(role string) bool {
	for _, r := range u.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

type FeeBreakdownItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type Invoice struct {
	ID           string             `json:"id"`
	StudentID    string             `json:"studentId"`
	StudentName  string             `json:"studentName"` // denormalized snapshot
	Title        string             `json:"title"`
	Amount       float64            `json:"amount"`
	FeeBreakdown []FeeBreakdownItem `json:"feeBreakdown,omitempty"`
	DueDate      time.Time          `json:"dueDate"`
	IssuedAt     time.Time          `json:"issuedAt"`
	Status       string             `json:"status"`
}

// InvoiceAmount computes an invoice total: a percentage of the payable fee
// plus the breakdown line items, rounded to the nearest unit.
func InvoiceAmount(payableFee, percent float64, breakdown []FeeBreakdownItem) float64 {
	total := payableFee * percent / 100
	for _, item := range breakdown {
		total += item.Amount
	}
	return math.Round(total)
}

type FeeRecord struct {
	ID            string    `json:"id"`
	ReceiptNumber int       `json:"receiptNumber"` // global monotonic counter
	InvoiceID     string    `json:"invoiceId,omitempty"`
	StudentID     string    `json:"studentId"`
	StudentName   string    `json:"studentName"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description,omitempty"`
	Date          time.Time `json:"date"`
	Status        string    `json:"status"`
	// balance computed at payment time: netPayable − totalPaid incl. this payment
	RemainingDue float64 `json:"remainingDueSnapshot"`

	// pending edit proposal; applied on approval, discarded on rejection
	ProposedAmount      *float64 `json:"proposedAmount,omitempty"`
	ProposedDescription string   `json:"proposedDescription,omitempty"`
}

type ExamSession struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *ExamSession) IsOpen() bool { return s.Status == SessionOpen }

type SubjectScore struct {
	Obtained  float64 `json:"obtained"`
	FullMarks float64 `json:"fullMarks"`
	PassMarks float64 `json:"passMarks"`
}

// ExamReport is a per-student, per-session scorecard. It is created lazily on
// first mark entry and merged one subject at a time, never wholesale replaced.
type ExamReport struct {
	ID            string                  `json:"id"`
	StudentID     string                  `json:"studentId"`
	StudentName   string                  `json:"studentName"`
	ExamSessionID string                  `json:"examSessionId,omitempty"`
	SessionName   string                  `json:"sessionName"`
	Scores        map[string]SubjectScore `json:"scores"`
	Published     bool                    `json:"published"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

type Assignment struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Subject     string    `json:"subject"`
	ClassID     string    `json:"classId"`
	Section     string    `json:"section,omitempty"` // empty = all sections
	TeacherID   string    `json:"teacherId"`
	TeacherName string    `json:"teacherName"`
	DueDate     time.Time `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Submission struct {
	ID           string     `json:"id"`
	AssignmentID string     `json:"assignmentId"`
	StudentID    string     `json:"studentId"`
	StudentName  string     `json:"studentName"`
	Content      string     `json:"content"`
	SubmittedAt  time.Time  `json:"submittedAt"`
	Grade        string     `json:"grade,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	GradedAt     *time.Time `json:"gradedAt,omitempty"`
}

func (s *Submission) IsGraded() bool { return s.Grade != "" }

type Notice struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Audience  string    `json:"audience"`
	PostedBy  string    `json:"postedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// VisibleTo reports whether a notice targets the given role.
func (n *Notice) VisibleTo(role string) bool {
	switch n.Audience {
	case AudienceAll, "":
		return true
	case AudienceStudents:
		return role == RoleStudent
	case AudienceTeachers:
		return role == RoleTeacher
	}
	return false
}

// SystemClass is reference data: a class name plus its ordered sections.
// Keyed by name.
type SystemClass struct {
	Name     string   `json:"name"`
	Sections []string `json:"sections,omitempty"`
}

// Subject is reference data, keyed by name.
type Subject struct {
	Name string `json:"name"`
}

type WorkLog struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	Date     time.Time `json:"date"`
	Summary  string    `json:"summary"`
	Hours    float64   `json:"hours,omitempty"`
}

// Settings is the singleton operational document, stored under SettingsKey.
type Settings struct {
	// NextReceiptNumber is the persisted receipt counter reset; zero means
	// no reset was ever recorded and the counter derives from the fees.
	NextReceiptNumber int `json:"nextReceiptNumber,omitempty"`
}

// RoleRequest is a pending request to extend a user's allowedRoles; it is
// removed from the pending set once resolved either way.
type RoleRequest struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	RequestedRole string    `json:"requestedRole"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
