package domain

// Raw column names of an ingestion row.
const (
	RawFirstName = "firstname"
	RawLastName  = "lastname"
	RawEmail     = "email"
	RawPhone     = "phone"
	RawStatus    = "status"
	RawProvider  = "provider"
	RawBirthDate = "birth_date"
)

// RawColumns lists the ingestion columns in their conventional file order.
var RawColumns = []string{
	RawFirstName,
	RawLastName,
	RawEmail,
	RawPhone,
	RawStatus,
	RawProvider,
	RawBirthDate,
}

// RawUserRecord is one candidate row as produced by a file parser.
type RawUserRecord map[string]string

type ImportFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportOutcome summarizes a single ingestion batch.
// SuccessCount + FailedCount always equals the number of input rows.
type ImportOutcome struct {
	SuccessCount int             `json:"successCount"`
	FailedCount  int             `json:"failedCount"`
	Failures     []ImportFailure `json:"failures,omitempty"`
}

func (o ImportOutcome) Total() int {
	return o.SuccessCount + o.FailedCount
}
