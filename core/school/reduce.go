package school

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Apply is the state transition function: it computes the next state for a
// command and emits the persistence effects for every changed record. It is
// pure with respect to the in-memory state: the input state is never
// mutated, and side effects are returned rather than performed.
//
// Commands referencing records that no longer exist return the state
// unchanged with no effects; they never fail. Exactly one entity transition
// happens per command (bulk commands are one batch transition).
func Apply(s State, cmd Command) (State, []Effect) {
	switch cmd := cmd.(type) {
	// ---- users & roles ----
	case RegisterUser:
		return applyRegisterUser(s, cmd)
	case AddUser:
		return applyAddUser(s, cmd)
	case ApproveUser:
		return applyApproveUser(s, cmd)
	case RejectUser:
		return applyRejectUser(s, cmd)
	case EditUser:
		return applyEditUser(s, cmd)
	case RemoveUser:
		return applyRemoveUser(s, cmd)
	case SwitchRole:
		return applySwitchRole(s, cmd)
	case RequestRole:
		return applyRequestRole(s, cmd)
	case ResolveRoleRequest:
		return applyResolveRoleRequest(s, cmd)

	// ---- finance ----
	case CreateInvoice:
		return applyCreateInvoice(s, cmd)
	case GenerateClassInvoices:
		return applyGenerateClassInvoices(s, cmd)
	case RequestInvoiceDelete:
		return applyInvoiceStatus(s, cmd.ID, InvoiceUnpaid, InvoicePendingDelete)
	case ResolveInvoiceDelete:
		return applyResolveInvoiceDelete(s, cmd)
	case AddFee:
		return applyAddFee(s, cmd)
	case RequestFeeDelete:
		return applyFeeStatus(s, cmd.ID, FeePendingDelete, nil, "")
	case RequestFeeEdit:
		return applyFeeStatus(s, cmd.ID, FeePendingEdit, &cmd.Amount, cmd.Description)
	case ResolveFeeDelete:
		return applyResolveFeeDelete(s, cmd)
	case ResolveFeeEdit:
		return applyResolveFeeEdit(s, cmd)
	case ResetReceiptCounter:
		next := cmd.Next
		if next < 1 {
			next = 1
		}
		s.ReceiptCounter = next
		s.Settings.NextReceiptNumber = next
		return s, []Effect{SaveDoc{ColSettings, SettingsKey, s.Settings}}

	// ---- academics ----
	case CreateAssignment:
		return applyCreateAssignment(s, cmd)
	case DeleteAssignment:
		return applyDeleteAssignment(s, cmd)
	case SubmitAssignment:
		return applySubmitAssignment(s, cmd)
	case GradeSubmission:
		return applyGradeSubmission(s, cmd)
	case CreateExamSession:
		return applyCreateExamSession(s, cmd)
	case SetExamSessionStatus:
		return applySetExamSessionStatus(s, cmd)
	case EnterMark:
		return applyEnterMark(s, cmd)
	case PublishClassResult:
		return applyPublishClassResult(s, cmd)

	// ---- notices, reference data, work logs ----
	case PostNotice:
		return applyPostNotice(s, cmd)
	case DeleteNotice:
		return applyDeleteNotice(s, cmd)
	case AddClass:
		return applyAddClass(s, cmd)
	case DeleteClass:
		return applyDeleteClass(s, cmd)
	case AddSubject:
		return applyAddSubject(s, cmd)
	case DeleteSubject:
		return applyDeleteSubject(s, cmd)
	case AddWorkLog:
		return applyAddWorkLog(s, cmd)
	case DeleteWorkLog:
		return applyDeleteWorkLog(s, cmd)
	}
	return s, nil
}

// orNewID keeps a caller-assigned id or generates one. Callers assign ids so
// they can find the created record again by content under concurrent
// dispatches.
func orNewID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

// ---- users & roles ----

func applyRegisterUser(s State, cmd RegisterUser) (State, []Effect) {
	now := time.Now().UTC()
	status := StatusPending
	if cmd.Role == RoleDeveloper {
		// bootstrap exception: the first administrative account has no approver
		status = StatusActive
	}
	usr := User{
		ID:           uuid.New().String(),
		Name:         cmd.Name,
		Email:        cmd.Email,
		Password:     cmd.Password,
		Role:         cmd.Role,
		AllowedRoles: []string{cmd.Role},
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	next := s.clone()
	next.Users = append(next.Users, usr)
	return next, []Effect{saveUser(usr)}
}

func applyAddUser(s State, cmd AddUser) (State, []Effect) {
	usr := cmd.User
	now := time.Now().UTC()
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	if usr.Status == "" {
		usr.Status = StatusActive
	}
	if len(usr.AllowedRoles) == 0 {
		usr.AllowedRoles = []string{usr.Role}
	}
	usr.CreatedAt = now
	usr.UpdatedAt = now
	next := s.clone()
	next.Users = append(next.Users, usr)
	return next, []Effect{saveUser(usr)}
}

// mergeUserUpdates applies the sparse updates onto a copy of usr.
func mergeUserUpdates(usr User, uu UserUpdates) User {
	if uu.Name != "" {
		usr.Name = uu.Name
	}
	if uu.Password != "" {
		usr.Password = uu.Password
	}
	if uu.ClassID != "" {
		usr.ClassID = uu.ClassID
	}
	if uu.Section != "" {
		usr.Section = uu.Section
	}
	if uu.AnnualFee != nil {
		fee := *uu.AnnualFee
		usr.AnnualFee = &fee
	}
	if uu.Discount != nil {
		usr.Discount = *uu.Discount
	}
	if uu.Subjects != nil {
		usr.Subjects = append([]string(nil), uu.Subjects...)
	}
	if uu.Status != "" {
		usr.Status = uu.Status
	}
	return usr
}

func applyApproveUser(s State, cmd ApproveUser) (State, []Effect) {
	i := s.UserIndex(cmd.ID)
	if i < 0 || s.Users[i].Status != StatusPending {
		return s, nil
	}
	usr := mergeUserUpdates(s.Users[i], cmd.Updates)
	usr.Status = StatusActive
	usr.UpdatedAt = time.Now().UTC()
	next := s.clone()
	next.Users[i] = usr
	return next, []Effect{saveUser(usr)}
}

func applyRejectUser(s State, cmd RejectUser) (State, []Effect) {
	i := s.UserIndex(cmd.ID)
	if i < 0 || s.Users[i].Status != StatusPending {
		return s, nil
	}
	next := s.clone()
	next.Users = append(next.Users[:i], next.Users[i+1:]...)
	return next, []Effect{DeleteDoc{ColUsers, cmd.ID}}
}

func applyEditUser(s State, cmd EditUser) (State, []Effect) {
	i := s.UserIndex(cmd.ID)
	if i < 0 {
		return s, nil
	}
	usr := mergeUserUpdates(s.Users[i], cmd.Updates)
	usr.UpdatedAt = time.Now().UTC()
	next := s.clone()
	next.Users[i] = usr
	return next, []Effect{saveUser(usr)}
}

func applyRemoveUser(s State, cmd RemoveUser) (State, []Effect) {
	i := s.UserIndex(cmd.ID)
	if i < 0 {
		return s, nil
	}
	next := s.clone()
	next.Users = append(next.Users[:i], next.Users[i+1:]...)
	return next, []Effect{DeleteDoc{ColUsers, cmd.ID}}
}

func applySwitchRole(s State, cmd SwitchRole) (State, []Effect) {
	i := s.UserIndex(cmd.UserID)
	if i < 0 || !s.Users[i].HasAllowedRole(cmd.Role) {
		return s, nil
	}
	usr := s.Users[i]
	if usr.Role == cmd.Role {
		return s, nil
	}
	usr.Role = cmd.Role
	usr.UpdatedAt = time.Now().UTC()
	next := s.clone()
	next.Users[i] = usr
	return next, []Effect{saveUser(usr)}
}

func applyRequestRole(s State, cmd RequestRole) (State, []Effect) {
	usr, ok := s.FindUser(cmd.UserID)
	if !ok || !IsRole(cmd.Role) {
		return s, nil
	}
	req := RoleRequest{
		ID:            uuid.New().String(),
		UserID:        usr.ID,
		UserName:      usr.Name,
		RequestedRole: cmd.Role,
		Reason:        cmd.Reason,
		CreatedAt:     time.Now().UTC(),
	}
	next := s.clone()
	next.RoleRequests = append(next.RoleRequests, req)
	return next, []Effect{SaveDoc{ColRoleRequests, req.ID, req}}
}

func applyResolveRoleRequest(s State, cmd ResolveRoleRequest) (State, []Effect) {
	ri := -1
	for i := range s.RoleRequests {
		if s.RoleRequests[i].ID == cmd.RequestID {
			ri = i
			break
		}
	}
	if ri < 0 {
		return s, nil
	}
	req := s.RoleRequests[ri]

	next := s.clone()
	next.RoleRequests = append(next.RoleRequests[:ri], next.RoleRequests[ri+1:]...)
	effects := []Effect{DeleteDoc{ColRoleRequests, req.ID}}

	if cmd.Approve {
		if ui := next.UserIndex(req.UserID); ui >= 0 && !next.Users[ui].HasAllowedRole(req.RequestedRole) {
			usr := next.Users[ui]
			usr.AllowedRoles = append(append([]string(nil), usr.AllowedRoles...), req.RequestedRole)
			usr.UpdatedAt = time.Now().UTC()
			next.Users[ui] = usr
			effects = append(effects, saveUser(usr))
		}
	}
	return next, effects
}

// ---- finance ----

func applyCreateInvoice(s State, cmd CreateInvoice) (State, []Effect) {
	ui := s.UserIndex(cmd.StudentID)
	if ui < 0 || !s.Users[ui].IsStudent() {
		return s, nil
	}
	student := s.Users[ui]
	inv := Invoice{
		ID:           orNewID(cmd.ID),
		StudentID:    student.ID,
		StudentName:  student.Name,
		Title:        cmd.Title,
		Amount:       InvoiceAmount(student.PayableFee(), cmd.Percent, cmd.Breakdown),
		FeeBreakdown: cmd.Breakdown,
		DueDate:      cmd.DueDate,
		IssuedAt:     time.Now().UTC(),
		Status:       InvoiceUnpaid,
	}
	next := s.clone()
	next.Invoices = append(next.Invoices, inv)
	return next, []Effect{saveInvoice(inv)}
}

func applyGenerateClassInvoices(s State, cmd GenerateClassInvoices) (State, []Effect) {
	now := time.Now().UTC()
	batch := cmd.Batch
	if batch == "" {
		batch = strconv.FormatInt(now.UnixNano()/int64(time.Millisecond), 10)
	}

	var invoices []Invoice
	var effects []Effect
	for i, student := range s.studentsOf(cmd.ClassID, cmd.Section) {
		if student.AnnualFee == nil {
			// incomplete record; skip rather than bill a bogus amount
			continue
		}
		inv := Invoice{
			ID:           batch + "-" + strconv.Itoa(i),
			StudentID:    student.ID,
			StudentName:  student.Name,
			Title:        cmd.Title,
			Amount:       InvoiceAmount(student.PayableFee(), cmd.Percent, cmd.Breakdown),
			FeeBreakdown: cmd.Breakdown,
			DueDate:      cmd.DueDate,
			IssuedAt:     now,
			Status:       InvoiceUnpaid,
		}
		invoices = append(invoices, inv)
		effects = append(effects, saveInvoice(inv))
	}
	if len(invoices) == 0 {
		return s, nil
	}
	next := s.clone()
	next.Invoices = append(next.Invoices, invoices...)
	return next, effects
}

// applyInvoiceStatus transitions an invoice from `from` to `to`.
func applyInvoiceStatus(s State, id, from, to string) (State, []Effect) {
	i := s.InvoiceIndex(id)
	if i < 0 || s.Invoices[i].Status != from {
		return s, nil
	}
	inv := s.Invoices[i]
	inv.Status = to
	next := s.clone()
	next.Invoices[i] = inv
	return next, []Effect{saveInvoice(inv)}
}

func applyResolveInvoiceDelete(s State, cmd ResolveInvoiceDelete) (State, []Effect) {
	i := s.InvoiceIndex(cmd.ID)
	if i < 0 || s.Invoices[i].Status != InvoicePendingDelete {
		return s, nil
	}
	if !cmd.Approve {
		inv := s.Invoices[i]
		inv.Status = InvoiceUnpaid
		next := s.clone()
		next.Invoices[i] = inv
		return next, []Effect{saveInvoice(inv)}
	}
	next := s.clone()
	next.Invoices = append(next.Invoices[:i], next.Invoices[i+1:]...)
	return next, []Effect{DeleteDoc{ColInvoices, cmd.ID}}
}

func applyAddFee(s State, cmd AddFee) (State, []Effect) {
	ui := s.UserIndex(cmd.StudentID)
	if ui < 0 || !s.Users[ui].IsStudent() {
		return s, nil
	}
	next := s.clone()

	student := next.Users[ui]
	priorPaid := student.TotalPaid
	student.TotalPaid = priorPaid + cmd.Amount
	student.UpdatedAt = time.Now().UTC()
	next.Users[ui] = student

	fee := FeeRecord{
		ID:            orNewID(cmd.ID),
		ReceiptNumber: next.ReceiptCounter,
		InvoiceID:     cmd.InvoiceID,
		StudentID:     student.ID,
		StudentName:   student.Name,
		Amount:        cmd.Amount,
		Description:   cmd.Description,
		Date:          time.Now().UTC(),
		Status:        FeePaid,
		RemainingDue:  student.PayableFee() - priorPaid - cmd.Amount,
	}
	next.ReceiptCounter++
	next.Fees = append(next.Fees, fee)
	effects := []Effect{saveFee(fee), saveUser(student)}

	// a payment referencing an invoice settles it in full; partial amounts
	// are not tracked against invoices
	if cmd.InvoiceID != "" {
		if ii := next.InvoiceIndex(cmd.InvoiceID); ii >= 0 && next.Invoices[ii].Status != InvoicePaid {
			inv := next.Invoices[ii]
			inv.Status = InvoicePaid
			next.Invoices[ii] = inv
			effects = append(effects, saveInvoice(inv))
		}
	}
	return next, effects
}

// applyFeeStatus transitions a paid fee record to a pending review status,
// optionally recording an edit proposal.
func applyFeeStatus(s State, id, status string, amount *float64, description string) (State, []Effect) {
	i := s.FeeIndex(id)
	if i < 0 || s.Fees[i].Status != FeePaid {
		return s, nil
	}
	fee := s.Fees[i]
	fee.Status = status
	if amount != nil {
		a := *amount
		fee.ProposedAmount = &a
		fee.ProposedDescription = description
	}
	next := s.clone()
	next.Fees[i] = fee
	return next, []Effect{saveFee(fee)}
}

func applyResolveFeeDelete(s State, cmd ResolveFeeDelete) (State, []Effect) {
	i := s.FeeIndex(cmd.ID)
	if i < 0 || s.Fees[i].Status != FeePendingDelete {
		return s, nil
	}
	if !cmd.Approve {
		fee := s.Fees[i]
		fee.Status = FeePaid
		next := s.clone()
		next.Fees[i] = fee
		return next, []Effect{saveFee(fee)}
	}

	fee := s.Fees[i]
	next := s.clone()
	next.Fees = append(next.Fees[:i], next.Fees[i+1:]...)
	effects := []Effect{DeleteDoc{ColFees, fee.ID}}

	// recompute the student's totalPaid from the surviving records so the
	// running balance tracks the live fee set
	if ui := next.UserIndex(fee.StudentID); ui >= 0 {
		student := next.Users[ui]
		var total float64
		for _, f := range next.Fees {
			if f.StudentID == student.ID {
				total += f.Amount
			}
		}
		student.TotalPaid = total
		student.UpdatedAt = time.Now().UTC()
		next.Users[ui] = student
		effects = append(effects, saveUser(student))
	}
	return next, effects
}

func applyResolveFeeEdit(s State, cmd ResolveFeeEdit) (State, []Effect) {
	i := s.FeeIndex(cmd.ID)
	if i < 0 || s.Fees[i].Status != FeePendingEdit {
		return s, nil
	}
	fee := s.Fees[i]
	next := s.clone()
	effects := make([]Effect, 0, 2)

	if cmd.Approve && fee.ProposedAmount != nil {
		delta := *fee.ProposedAmount - fee.Amount
		fee.Amount = *fee.ProposedAmount
		if fee.ProposedDescription != "" {
			fee.Description = fee.ProposedDescription
		}
		if ui := next.UserIndex(fee.StudentID); ui >= 0 && delta != 0 {
			student := next.Users[ui]
			student.TotalPaid += delta
			student.UpdatedAt = time.Now().UTC()
			next.Users[ui] = student
			effects = append(effects, saveUser(student))
		}
	}
	fee.Status = FeePaid
	fee.ProposedAmount = nil
	fee.ProposedDescription = ""
	next.Fees[i] = fee
	return next, append(effects, saveFee(fee))
}

// ---- academics ----

func applyCreateAssignment(s State, cmd CreateAssignment) (State, []Effect) {
	teacher, ok := s.FindUser(cmd.TeacherID)
	if !ok {
		return s, nil
	}
	a := Assignment{
		ID:          orNewID(cmd.ID),
		Title:       cmd.Title,
		Description: cmd.Description,
		Subject:     cmd.Subject,
		ClassID:     cmd.ClassID,
		Section:     cmd.Section,
		TeacherID:   teacher.ID,
		TeacherName: teacher.Name,
		DueDate:     cmd.DueDate,
		CreatedAt:   time.Now().UTC(),
	}
	next := s.clone()
	next.Assignments = append(next.Assignments, a)
	return next, []Effect{SaveDoc{ColAssignments, a.ID, a}}
}

func applyDeleteAssignment(s State, cmd DeleteAssignment) (State, []Effect) {
	for i := range s.Assignments {
		if s.Assignments[i].ID == cmd.ID {
			next := s.clone()
			next.Assignments = append(next.Assignments[:i], next.Assignments[i+1:]...)
			return next, []Effect{DeleteDoc{ColAssignments, cmd.ID}}
		}
	}
	return s, nil
}

func applySubmitAssignment(s State, cmd SubmitAssignment) (State, []Effect) {
	var assignmentExists bool
	for i := range s.Assignments {
		if s.Assignments[i].ID == cmd.AssignmentID {
			assignmentExists = true
			break
		}
	}
	student, ok := s.FindUser(cmd.StudentID)
	if !assignmentExists || !ok {
		return s, nil
	}

	now := time.Now().UTC()
	next := s.clone()
	if i := next.submissionIndex(cmd.AssignmentID, cmd.StudentID); i >= 0 {
		sub := next.Submissions[i]
		if sub.IsGraded() {
			return s, nil
		}
		sub.Content = cmd.Content
		sub.SubmittedAt = now
		next.Submissions[i] = sub
		return next, []Effect{SaveDoc{ColSubmissions, sub.ID, sub}}
	}

	sub := Submission{
		ID:           uuid.New().String(),
		AssignmentID: cmd.AssignmentID,
		StudentID:    student.ID,
		StudentName:  student.Name,
		Content:      cmd.Content,
		SubmittedAt:  now,
	}
	next.Submissions = append(next.Submissions, sub)
	return next, []Effect{SaveDoc{ColSubmissions, sub.ID, sub}}
}

func applyGradeSubmission(s State, cmd GradeSubmission) (State, []Effect) {
	for i := range s.Submissions {
		if s.Submissions[i].ID != cmd.ID {
			continue
		}
		now := time.Now().UTC()
		sub := s.Submissions[i]
		sub.Grade = cmd.Grade
		sub.Feedback = cmd.Feedback
		sub.GradedAt = &now
		next := s.clone()
		next.Submissions[i] = sub
		return next, []Effect{SaveDoc{ColSubmissions, sub.ID, sub}}
	}
	return s, nil
}

func applyCreateExamSession(s State, cmd CreateExamSession) (State, []Effect) {
	sess := ExamSession{
		ID:        orNewID(cmd.ID),
		Name:      cmd.Name,
		Status:    SessionOpen,
		CreatedAt: time.Now().UTC(),
	}
	next := s.clone()
	next.ExamSessions = append(next.ExamSessions, sess)
	return next, []Effect{saveSession(sess)}
}

func applySetExamSessionStatus(s State, cmd SetExamSessionStatus) (State, []Effect) {
	i := s.sessionIndex(cmd.ID)
	if i < 0 || (cmd.Status != SessionOpen && cmd.Status != SessionClosed) {
		return s, nil
	}
	if s.ExamSessions[i].Status == cmd.Status {
		return s, nil
	}
	sess := s.ExamSessions[i]
	sess.Status = cmd.Status
	next := s.clone()
	next.ExamSessions[i] = sess
	return next, []Effect{saveSession(sess)}
}

func applyEnterMark(s State, cmd EnterMark) (State, []Effect) {
	si := s.sessionIndex(cmd.ExamSessionID)
	if si < 0 || !s.ExamSessions[si].IsOpen() {
		return s, nil // marks may only be entered for open sessions
	}
	student, ok := s.FindUser(cmd.StudentID)
	if !ok {
		return s, nil
	}
	sess := s.ExamSessions[si]

	next := s.clone()
	if ri := next.reportIndex(cmd.StudentID, cmd.ExamSessionID); ri >= 0 {
		report := next.ExamReports[ri]
		scores := make(map[string]SubjectScore, len(report.Scores)+1)
		for k, v := range report.Scores {
			scores[k] = v
		}
		scores[cmd.Subject] = cmd.Score
		report.Scores = scores
		report.UpdatedAt = time.Now().UTC()
		next.ExamReports[ri] = report
		return next, []Effect{saveReport(report)}
	}

	report := ExamReport{
		ID:            uuid.New().String(),
		StudentID:     student.ID,
		StudentName:   student.Name,
		ExamSessionID: sess.ID,
		SessionName:   sess.Name,
		Scores:        map[string]SubjectScore{cmd.Subject: cmd.Score},
		UpdatedAt:     time.Now().UTC(),
	}
	next.ExamReports = append(next.ExamReports, report)
	return next, []Effect{saveReport(report)}
}

func applyPublishClassResult(s State, cmd PublishClassResult) (State, []Effect) {
	students := make(map[string]bool)
	for _, u := range s.studentsOf(cmd.ClassID, cmd.Section) {
		students[u.ID] = true
	}

	next := s.clone()
	var effects []Effect
	for i := range next.ExamReports {
		report := next.ExamReports[i]
		if !students[report.StudentID] {
			continue
		}
		// match by session id, or by legacy session name when the id link is
		// missing (self-healed below)
		matched := report.ExamSessionID == cmd.ExamSessionID ||
			(report.ExamSessionID == "" && cmd.SessionName != "" && report.SessionName == cmd.SessionName)
		if !matched {
			continue
		}
		changed := false
		if report.Published != cmd.Published {
			report.Published = cmd.Published
			changed = true
		}
		if report.ExamSessionID == "" {
			report.ExamSessionID = cmd.ExamSessionID
			changed = true
		}
		if !changed {
			continue
		}
		report.UpdatedAt = time.Now().UTC()
		next.ExamReports[i] = report
		effects = append(effects, saveReport(report))
	}
	if len(effects) == 0 {
		// avoid redundant writes when nothing actually changed
		return s, nil
	}
	return next, effects
}

// ---- notices, reference data, work logs ----

func applyPostNotice(s State, cmd PostNotice) (State, []Effect) {
	n := Notice{
		ID:        orNewID(cmd.ID),
		Title:     cmd.Title,
		Body:      cmd.Body,
		Audience:  cmd.Audience,
		PostedBy:  cmd.PostedBy,
		CreatedAt: time.Now().UTC(),
	}
	if n.Audience == "" {
		n.Audience = AudienceAll
	}
	next := s.clone()
	next.Notices = append(next.Notices, n)
	return next, []Effect{SaveDoc{ColNotices, n.ID, n}}
}

func applyDeleteNotice(s State, cmd DeleteNotice) (State, []Effect) {
	for i := range s.Notices {
		if s.Notices[i].ID == cmd.ID {
			next := s.clone()
			next.Notices = append(next.Notices[:i], next.Notices[i+1:]...)
			return next, []Effect{DeleteDoc{ColNotices, cmd.ID}}
		}
	}
	return s, nil
}

func applyAddClass(s State, cmd AddClass) (State, []Effect) {
	cls := SystemClass{Name: cmd.Name, Sections: append([]string(nil), cmd.Sections...)}
	next := s.clone()
	for i := range next.Classes {
		if next.Classes[i].Name == cls.Name {
			next.Classes[i] = cls
			return next, []Effect{SaveDoc{ColClasses, cls.Name, cls}}
		}
	}
	next.Classes = append(next.Classes, cls)
	return next, []Effect{SaveDoc{ColClasses, cls.Name, cls}}
}

func applyDeleteClass(s State, cmd DeleteClass) (State, []Effect) {
	for i := range s.Classes {
		if s.Classes[i].Name == cmd.Name {
			next := s.clone()
			next.Classes = append(next.Classes[:i], next.Classes[i+1:]...)
			return next, []Effect{DeleteDoc{ColClasses, cmd.Name}}
		}
	}
	return s, nil
}

func applyAddSubject(s State, cmd AddSubject) (State, []Effect) {
	for i := range s.Subjects {
		if s.Subjects[i].Name == cmd.Name {
			return s, nil
		}
	}
	sub := Subject{Name: cmd.Name}
	next := s.clone()
	next.Subjects = append(next.Subjects, sub)
	return next, []Effect{SaveDoc{ColSubjects, sub.Name, sub}}
}

func applyDeleteSubject(s State, cmd DeleteSubject) (State, []Effect) {
	for i := range s.Subjects {
		if s.Subjects[i].Name == cmd.Name {
			next := s.clone()
			next.Subjects = append(next.Subjects[:i], next.Subjects[i+1:]...)
			return next, []Effect{DeleteDoc{ColSubjects, cmd.Name}}
		}
	}
	return s, nil
}

func applyAddWorkLog(s State, cmd AddWorkLog) (State, []Effect) {
	usr, ok := s.FindUser(cmd.UserID)
	if !ok {
		return s, nil
	}
	date := cmd.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	wl := WorkLog{
		ID:       orNewID(cmd.ID),
		UserID:   usr.ID,
		UserName: usr.Name,
		Date:     date,
		Summary:  cmd.Summary,
		Hours:    cmd.Hours,
	}
	next := s.clone()
	next.WorkLogs = append(next.WorkLogs, wl)
	return next, []Effect{SaveDoc{ColWorkLogs, wl.ID, wl}}
}

func applyDeleteWorkLog(s State, cmd DeleteWorkLog) (State, []Effect) {
	for i := range s.WorkLogs {
		if s.WorkLogs[i].ID == cmd.ID {
			next := s.clone()
			next.WorkLogs = append(next.WorkLogs[:i], next.WorkLogs[i+1:]...)
			return next, []Effect{DeleteDoc{ColWorkLogs, cmd.ID}}
		}
	}
	return s, nil
}
