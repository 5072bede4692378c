package school

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Collection names a persisted document set in the remote store.
type Collection string

const (
	ColUsers        Collection = "users"
	ColAssignments  Collection = "assignments"
	ColSubmissions  Collection = "submissions"
	ColInvoices     Collection = "invoices"
	ColFees         Collection = "fees"
	ColExamSessions Collection = "examSessions"
	ColExamReports  Collection = "examReports"
	ColNotices      Collection = "notices"
	ColSubjects     Collection = "subjects" // keyed by name
	ColClasses      Collection = "classes"  // keyed by name
	ColWorkLogs     Collection = "workLogs"
	ColRoleRequests Collection = "roleRequests"
	ColSettings     Collection = "settings"
)

// SettingsKey is the key of the single settings document.
const SettingsKey = "settings"

// AllCollections in load order.
var AllCollections = []Collection{
	ColUsers, ColAssignments, ColSubmissions, ColInvoices, ColFees,
	ColExamSessions, ColExamReports, ColNotices, ColSubjects, ColClasses,
	ColWorkLogs, ColRoleRequests, ColSettings,
}

type (
	// Store is the persistence gateway: per-collection document access against
	// a remote key-value document store. Documents are serialized as JSON with
	// empty optional fields omitted, never written as explicit nulls.
	Store interface {
		// LoadAll loads every collection. Collection loads are isolated: a
		// failure for one collection yields an empty set for that collection
		// only (logged by the implementation) while the others still load.
		LoadAll(ctx context.Context) (Snapshot, error)
		// Save upserts a document by its natural key.
		Save(ctx context.Context, col Collection, key string, doc interface{}) error
		// Delete removes a document by key; a no-op if absent.
		Delete(ctx context.Context, col Collection, key string) error
		// Seed bulk-writes documents into a collection.
		Seed(ctx context.Context, col Collection, docs map[string]interface{}) error
		// Wipe bulk-deletes the given collections.
		Wipe(ctx context.Context, cols ...Collection) error
	}

	// Snapshot is the typed contents of every collection.
	Snapshot struct {
		Users        []User
		Assignments  []Assignment
		Submissions  []Submission
		Invoices     []Invoice
		Fees         []FeeRecord
		ExamSessions []ExamSession
		ExamReports  []ExamReport
		Notices      []Notice
		Subjects     []Subject
		Classes      []SystemClass
		WorkLogs     []WorkLog
		RoleRequests []RoleRequest
		Settings     Settings
	}
)

// AddDoc unmarshals one raw document into the snapshot's collection slice.
// Store implementations use it so the collection-to-type mapping lives in one
// place.
func (s *Snapshot) AddDoc(col Collection, data []byte) error {
	var err error
	switch col {
	case ColUsers:
		var doc User
		if err = json.Unmarshal(data, &doc); err == nil {
			s.Users = append(s.Users, doc)
		}
	case ColAssignments:
		var doc Assignment
		if err = json.Unmarshal(data, &doc); err == nil {
			s.Assignments = append(s.Assignments, doc)
		}
	case ColSubmissions:
		var doc Submission
		if err = json.Unmarshal(data, &doc); err == nil {
			s.Submissions = append(s.Submissions, doc)
		}
	case ColInvoices:
		var doc Invoice
		if err = json.Unmarshal(data, &doc); err == nil {
			s.Invoices = append(s.Invoices, doc)
		}
	case ColFees:
		var doc FeeRecord
		if err = json.Unmarshal(data, &doc); err == nil {
			s.Fees = append(s.Fees, doc)
		}
	case ColExamSessions:
		var doc ExamSession
		if err = json.Unmarshal(data, &doc); err == nil {
			s.ExamSessions = append(s.ExamSessions, doc)
		}
	case ColExamReports:
		var doc ExamReport
		if err = json.Unmarshal(data, &doc); err == nil {
			s.ExamReports = append(s.ExamReports, doc)
		}
	case ColNotices:
		var doc Notice
		if err = json.Unmarshal(data, &doc); err == nil {
			s.Notices = append(s.Notices, doc)
		}
	case ColSubjects:
		var doc Subject
		if err = json.Unmarshal(data, &doc); err == nil {
			s.Subjects = append(s.Subjects, doc)
		}
	case ColClasses:
		var doc SystemClass
		if err = json.Unmarshal(data, &doc); err == nil {
			s.Classes = append(s.Classes, doc)
		}
	case ColWorkLogs:
		var doc WorkLog
		if err = json.Unmarshal(data, &doc); err == nil {
			s.WorkLogs = append(s.WorkLogs, doc)
		}
	case ColRoleRequests:
		var doc RoleRequest
		if err = json.Unmarshal(data, &doc); err == nil {
			s.RoleRequests = append(s.RoleRequests, doc)
		}
	case ColSettings:
		err = json.Unmarshal(data, &s.Settings)
	default:
		return errors.Errorf("unknown collection %q", col)
	}
	return errors.Wrapf(err, "unmarshaling %s document", col)
}

// Docs returns a collection's documents keyed by natural key, for seeding.
func (s *Snapshot) Docs(col Collection) map[string]interface{} {
	docs := make(map[string]interface{})
	switch col {
	case ColUsers:
		for _, d := range s.Users {
			docs[d.ID] = d
		}
	case ColAssignments:
		for _, d := range s.Assignments {
			docs[d.ID] = d
		}
	case ColSubmissions:
		for _, d := range s.Submissions {
			docs[d.ID] = d
		}
	case ColInvoices:
		for _, d := range s.Invoices {
			docs[d.ID] = d
		}
	case ColFees:
		for _, d := range s.Fees {
			docs[d.ID] = d
		}
	case ColExamSessions:
		for _, d := range s.ExamSessions {
			docs[d.ID] = d
		}
	case ColExamReports:
		for _, d := range s.ExamReports {
			docs[d.ID] = d
		}
	case ColNotices:
		for _, d := range s.Notices {
			docs[d.ID] = d
		}
	case ColSubjects:
		for _, d := range s.Subjects {
			docs[d.Name] = d
		}
	case ColClasses:
		for _, d := range s.Classes {
			docs[d.Name] = d
		}
	case ColWorkLogs:
		for _, d := range s.WorkLogs {
			docs[d.ID] = d
		}
	case ColRoleRequests:
		for _, d := range s.RoleRequests {
			docs[d.ID] = d
		}
	case ColSettings:
		if s.Settings != (Settings{}) {
			docs[SettingsKey] = s.Settings
		}
	}
	return docs
}
