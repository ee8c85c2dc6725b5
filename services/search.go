package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/utils"
)

var (
	jobCardTextColumns    = []string{"customer_name", "phone_numbers", "job_card_number", "dealer_name", "make", "sr_no"}
	jobCardNumericColumns = []string{"hp", "kva", "rpm"}
	onSiteTextColumns     = []string{"customer_name", "phone_numbers", "complaint_number", "dealer_name", "make"}
)

// likeEscaper escapes LIKE wildcards with '!', which both MySQL and SQLite
// accept as an ESCAPE character without quoting rules of their own.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// JobCardStatusFlags are the mutually exclusive list filters a client can set.
type JobCardStatusFlags struct {
	Returned  bool
	Pending   bool
	Completed bool
	Billed    bool
}

// ResolveStatusFilter picks a single status when several flags are set.
// Precedence: billed, completed, pending, returned.
func (f JobCardStatusFlags) ResolveStatusFilter() *models.JobCardStatus {
	var status models.JobCardStatus
	switch {
	case f.Billed:
		status = models.JobCardBilled
	case f.Completed:
		status = models.JobCardCompleted
	case f.Pending:
		status = models.JobCardPending
	case f.Returned:
		status = models.JobCardReturned
	default:
		return nil
	}
	return &status
}

type JobCardQuery struct {
	SearchTerm string
	Warranty   *bool
	Status     *models.JobCardStatus
	Page       utils.Pagination
}

type OnSiteQuery struct {
	SearchTerm      string
	WarrantyStatus  *models.WarrantyStatus
	ComplaintStatus *models.ComplaintStatus
	PaymentStatus   *models.PaymentStatus
	Page            utils.Pagination
}

// applyTextSearch adds one OR group: a case-insensitive substring match on
// every text column and, when the term is a number, equality on every
// numeric column.
func applyTextSearch(db *gorm.DB, term string, textColumns, numericColumns []string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" {
		return db
	}

	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	conds := make([]string, 0, len(textColumns)+len(numericColumns))
	args := make([]interface{}, 0, cap(conds))
	for _, col := range textColumns {
		conds = append(conds, fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '!'", col))
		args = append(args, pattern)
	}

	if n, ok := parseNumericTerm(term); ok {
		for _, col := range numericColumns {
			conds = append(conds, col+" = ?")
			args = append(args, n)
		}
	}

	return db.Where("("+strings.Join(conds, " OR ")+")", args...)
}

func parseNumericTerm(term string) (float64, bool) {
	n, err := strconv.ParseFloat(term, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// parseOptionalInt coerces a numeric form value. Anything that does not
// parse is treated as absent; fractions are truncated.
func parseOptionalInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, ok := parseNumericTerm(raw)
	if !ok || n > math.MaxInt32 || n < math.MinInt32 {
		return nil
	}
	v := int(n)
	return &v
}
