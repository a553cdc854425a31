package events

const (
	SubjectRescoreRequest = "auricite.assessment.rescore.request"

	StreamName   = "AURICITE_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectAssessmentSubmitted(id string) string { return "auricite.assessment." + id + ".submitted" }
func SubjectScoreCompleted(id string) string      { return "auricite.score." + id + ".completed" }
func SubjectJobCompleted(id string) string        { return "auricite.job." + id + ".completed" }
func SubjectJobRetried(id string) string          { return "auricite.job." + id + ".retried" }
func SubjectJobFailed(id string) string           { return "auricite.job." + id + ".failed" }

func SubjectReportGenerated(id string) string { return "auricite.score." + id + ".report" }

func SubjectCRMSync() string { return "auricite.crm.sync" }
