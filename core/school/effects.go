package school

// Effect is a persistence side effect emitted by the reducer alongside the
// new state. Effects are applied to the Store by the coordinator without
// gating the state transition (fire-and-forget; failures are logged and
// swallowed, never rolled back).
type Effect interface {
	effect()
}

type (
	// SaveDoc upserts one document.
	SaveDoc struct {
		Col Collection
		Key string
		Doc interface{}
	}

	// DeleteDoc removes one document.
	DeleteDoc struct {
		Col Collection
		Key string
	}
)

func (SaveDoc) effect()   {}
func (DeleteDoc) effect() {}

func saveUser(u User) Effect          { return SaveDoc{ColUsers, u.ID, u} }
func saveInvoice(inv Invoice) Effect  { return SaveDoc{ColInvoices, inv.ID, inv} }
func saveFee(f FeeRecord) Effect      { return SaveDoc{ColFees, f.ID, f} }
func saveReport(r ExamReport) Effect  { return SaveDoc{ColExamReports, r.ID, r} }
func saveSession(s ExamSession) Effect { return SaveDoc{ColExamSessions, s.ID, s} }
