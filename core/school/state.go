package school

// State is the whole application state tree plus the global receipt counter.
// It is a value: Apply never mutates its input, and every dispatch installs a
// fresh copy.
type State struct {
	Snapshot

	// ReceiptCounter is the next receipt number to assign. Seeded at
	// bootstrap from the persisted reset (settings) and the highest loaded
	// receipt number, whichever is higher, so numbers stay distinct across
	// restarts.
	ReceiptCounter int
}

func NewState(snap Snapshot) State {
	next := 1
	if snap.Settings.NextReceiptNumber > next {
		next = snap.Settings.NextReceiptNumber
	}
	for _, f := range snap.Fees {
		if f.ReceiptNumber >= next {
			next = f.ReceiptNumber + 1
		}
	}
	return State{Snapshot: snap, ReceiptCounter: next}
}

// clone copies every collection slice so a reducer branch can mutate its copy
// freely. Element-level nested slices/maps are copied by the branches that
// touch them.
func (s State) clone() State {
	c := s
	c.Users = append([]User(nil), s.Users...)
	c.Assignments = append([]Assignment(nil), s.Assignments...)
	c.Submissions = append([]Submission(nil), s.Submissions...)
	c.Invoices = append([]Invoice(nil), s.Invoices...)
	c.Fees = append([]FeeRecord(nil), s.Fees...)
	c.ExamSessions = append([]ExamSession(nil), s.ExamSessions...)
	c.ExamReports = append([]ExamReport(nil), s.ExamReports...)
	c.Notices = append([]Notice(nil), s.Notices...)
	c.Subjects = append([]Subject(nil), s.Subjects...)
	c.Classes = append([]SystemClass(nil), s.Classes...)
	c.WorkLogs = append([]WorkLog(nil), s.WorkLogs...)
	c.RoleRequests = append([]RoleRequest(nil), s.RoleRequests...)
	return c
}

// ---- lookups ----

func (s *State) UserIndex(id string) int {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) FindUser(id string) (User, bool) {
	if i := s.UserIndex(id); i >= 0 {
		return s.Users[i], true
	}
	return User{}, false
}

func (s *State) InvoiceIndex(id string) int {
	for i := range s.Invoices {
		if s.Invoices[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) FeeIndex(id string) int {
	for i := range s.Fees {
		if s.Fees[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) sessionIndex(id string) int {
	for i := range s.ExamSessions {
		if s.ExamSessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) FindSession(id string) (ExamSession, bool) {
	if i := s.sessionIndex(id); i >= 0 {
		return s.ExamSessions[i], true
	}
	return ExamSession{}, false
}

// reportIndex finds the report for (studentID, sessionID); steady-state
// matching is by session id only (legacy name links are repaired at load).
func (s *State) reportIndex(studentID, sessionID string) int {
	for i := range s.ExamReports {
		if s.ExamReports[i].StudentID == studentID && s.ExamReports[i].ExamSessionID == sessionID {
			return i
		}
	}
	return -1
}

func (s *State) submissionIndex(assignmentID, studentID string) int {
	for i := range s.Submissions {
		if s.Submissions[i].AssignmentID == assignmentID && s.Submissions[i].StudentID == studentID {
			return i
		}
	}
	return -1
}

// studentsOf resolves the active students of a class; an empty section means
// every section.
func (s *State) studentsOf(classID, section string) []User {
	var students []User
	for _, u := range s.Users {
		if !u.IsStudent() || u.Status != StatusActive || u.ClassID != classID {
			continue
		}
		if section != "" && u.Section != section {
			continue
		}
		students = append(students, u)
	}
	return students
}

// ---- derived views ----

// PendingUsersFor returns the pending registrations the approver may resolve:
// only accounts whose declared role sits at or below the approver's tier in
// the approval hierarchy.
func (s *State) PendingUsersFor(approver User) []User {
	var pending []User
	for _, u := range s.Users {
		if u.Status == StatusPending && CanApproveRole(approver.Role, u.Role) {
			pending = append(pending, u)
		}
	}
	return pending
}

// NoticesFor filters notices down to those visible to a role.
func (s *State) NoticesFor(role string) []Notice {
	var visible []Notice
	for _, n := range s.Notices {
		if n.VisibleTo(role) {
			visible = append(visible, n)
		}
	}
	return visible
}

// ReportsFor returns a student's reports; unpublished ones are withheld
// unless includeUnpublished is set (staff view).
func (s *State) ReportsFor(studentID string, includeUnpublished bool) []ExamReport {
	var reports []ExamReport
	for _, r := range s.ExamReports {
		if r.StudentID != studentID {
			continue
		}
		if !r.Published && !includeUnpublished {
			continue
		}
		reports = append(reports, r)
	}
	return reports
}

// FeesFor returns a student's fee records in receipt order.
func (s *State) FeesFor(studentID string) []FeeRecord {
	var fees []FeeRecord
	for _, f := range s.Fees {
		if f.StudentID == studentID {
			fees = append(fees, f)
		}
	}
	return fees
}

// InvoicesFor returns a student's invoices.
func (s *State) InvoicesFor(studentID string) []Invoice {
	var invoices []Invoice
	for _, inv := range s.Invoices {
		if inv.StudentID == studentID {
			invoices = append(invoices, inv)
		}
	}
	return invoices
}
