package school

import "time"

// Command is the closed set of state transitions. Every variant carries a
// strongly-typed payload and is handled exhaustively by Apply; there is no
// string-keyed dispatch to fall through.
type Command interface {
	isCommand()
}

// ---- users & roles ----

type (
	// RegisterUser is a self-service registration. The account starts out
	// pending, except self-declared developers which come up active (the
	// bootstrap exception: the first administrative account needs no approver).
	RegisterUser struct {
		Name     string
		Email    string
		Password string
		Role     string
	}

	// AddUser is an admin-initiated account creation with an explicit status
	// and role-specific fields already filled in.
	AddUser struct {
		User User
	}

	// ApproveUser flips a pending account to active, merging the given
	// updates (financial fields and academic placement for students)
	// atomically with the status change.
	ApproveUser struct {
		ID      string
		Updates UserUpdates
	}

	// RejectUser removes a pending account entirely.
	RejectUser struct {
		ID string
	}

	// EditUser merges updates into an existing account.
	EditUser struct {
		ID      string
		Updates UserUpdates
	}

	// RemoveUser deletes an account.
	RemoveUser struct {
		ID string
	}

	// SwitchRole changes a user's active role to one of their allowedRoles.
	SwitchRole struct {
		UserID string
		Role   string
	}

	// RequestRole files a pending request for an additional allowed role.
	RequestRole struct {
		UserID string
		Role   string
		Reason string
	}

	// ResolveRoleRequest approves (allowedRoles extended, idempotently) or
	// rejects a pending role request; the request is discarded either way.
	ResolveRoleRequest struct {
		RequestID string
		Approve   bool
	}
)

// UserUpdates is a sparse merge: nil/empty fields leave the record untouched.
type UserUpdates struct {
	Name      string
	Password  string
	ClassID   string
	Section   string
	AnnualFee *float64
	Discount  *float64
	Subjects  []string
	Status    string
}

// ---- finance ----

type (
	// CreateInvoice bills a single student. Callers may pre-assign the id so
	// the created record can be found again by content; one is generated when
	// empty.
	CreateInvoice struct {
		ID        string // optional; assigned when empty
		StudentID string
		Title     string
		Percent   float64
		Breakdown []FeeBreakdownItem
		DueDate   time.Time
	}

	// GenerateClassInvoices bills every active student of a class (optionally
	// narrowed to one section) under a single batch stamp that prefixes every
	// generated invoice id. Students without an annual fee are skipped.
	GenerateClassInvoices struct {
		Batch     string // optional batch stamp; assigned when empty
		ClassID   string
		Section   string // empty = all sections
		Title     string
		Percent   float64
		Breakdown []FeeBreakdownItem
		DueDate   time.Time
	}

	// RequestInvoiceDelete marks an invoice pending_delete; a higher role
	// must resolve it.
	RequestInvoiceDelete struct {
		ID string
	}

	// ResolveInvoiceDelete hard-deletes (approve) or reverts to unpaid.
	ResolveInvoiceDelete struct {
		ID      string
		Approve bool
	}

	// AddFee applies a payment: assigns the next receipt number, bumps the
	// student's totalPaid, snapshots the remaining due, and settles the
	// linked invoice if any.
	AddFee struct {
		ID          string // optional; assigned when empty
		StudentID   string
		Amount      float64
		Description string
		InvoiceID   string
	}

	// RequestFeeDelete marks a fee record pending_delete.
	RequestFeeDelete struct {
		ID string
	}

	// RequestFeeEdit marks a fee record pending_edit, carrying the proposal.
	RequestFeeEdit struct {
		ID          string
		Amount      float64
		Description string
	}

	// ResolveFeeDelete hard-deletes (approve) or reverts the record to paid.
	ResolveFeeDelete struct {
		ID      string
		Approve bool
	}

	// ResolveFeeEdit applies the proposal (approve) or discards it; the
	// record reverts to paid either way.
	ResolveFeeEdit struct {
		ID      string
		Approve bool
	}

	// ResetReceiptCounter is the privileged control operation that restarts
	// the global receipt counter. The new value is persisted (settings
	// document) so it survives a reload.
	ResetReceiptCounter struct {
		Next int
	}
)

// ---- academics ----

type (
	CreateAssignment struct {
		ID          string // optional; assigned when empty
		Title       string
		Description string
		Subject     string
		ClassID     string
		Section     string
		TeacherID   string
		DueDate     time.Time
	}

	DeleteAssignment struct {
		ID string
	}

	// SubmitAssignment upserts the student's single submission for an
	// assignment; a graded submission is not overwritten.
	SubmitAssignment struct {
		AssignmentID string
		StudentID    string
		Content      string
	}

	GradeSubmission struct {
		ID       string
		Grade    string
		Feedback string
	}

	CreateExamSession struct {
		ID   string // optional; assigned when empty
		Name string
	}

	SetExamSessionStatus struct {
		ID     string
		Status string
	}

	// EnterMark merges one subject score into the student's report for an
	// open session, creating the report lazily on first entry.
	EnterMark struct {
		ExamSessionID string
		StudentID     string
		Subject       string
		Score         SubjectScore
	}

	// PublishClassResult toggles `published` on every report of the class
	// (optionally one section) linked to the session. A no-op when nothing
	// changes.
	PublishClassResult struct {
		ExamSessionID string
		SessionName   string
		ClassID       string
		Section       string // empty = all sections
		Published     bool
	}
)

// ---- notices, reference data, work logs ----

type (
	PostNotice struct {
		ID       string // optional; assigned when empty
		Title    string
		Body     string
		Audience string
		PostedBy string
	}

	DeleteNotice struct {
		ID string
	}

	AddClass struct {
		Name     string
		Sections []string
	}

	DeleteClass struct {
		Name string
	}

	AddSubject struct {
		Name string
	}

	DeleteSubject struct {
		Name string
	}

	AddWorkLog struct {
		ID      string // optional; assigned when empty
		UserID  string
		Summary string
		Hours   float64
		Date    time.Time
	}

	DeleteWorkLog struct {
		ID string
	}
)

func (RegisterUser) isCommand()          {}
func (AddUser) isCommand()               {}
func (ApproveUser) isCommand()           {}
func (RejectUser) isCommand()            {}
func (EditUser) isCommand()              {}
func (RemoveUser) isCommand()            {}
func (SwitchRole) isCommand()            {}
func (RequestRole) isCommand()           {}
func (ResolveRoleRequest) isCommand()    {}
func (CreateInvoice) isCommand()         {}
func (GenerateClassInvoices) isCommand() {}
func (RequestInvoiceDelete) isCommand()  {}
func (ResolveInvoiceDelete) isCommand()  {}
func (AddFee) isCommand()                {}
func (RequestFeeDelete) isCommand()      {}
func (RequestFeeEdit) isCommand()        {}
func (ResolveFeeDelete) isCommand()      {}
func (ResolveFeeEdit) isCommand()        {}
func (ResetReceiptCounter) isCommand()   {}
func (CreateAssignment) isCommand()      {}
func (DeleteAssignment) isCommand()      {}
func (SubmitAssignment) isCommand()      {}
func (GradeSubmission) isCommand()       {}
func (CreateExamSession) isCommand()     {}
func (SetExamSessionStatus) isCommand()  {}
func (EnterMark) isCommand()             {}
func (PublishClassResult) isCommand()    {}
func (PostNotice) isCommand()            {}
func (DeleteNotice) isCommand()          {}
func (AddClass) isCommand()              {}
func (DeleteClass) isCommand()           {}
func (AddSubject) isCommand()            {}
func (DeleteSubject) isCommand()         {}
func (AddWorkLog) isCommand()            {}
func (DeleteWorkLog) isCommand()         {}
