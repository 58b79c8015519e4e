// Package ofx reads paycheck deposits from OFX/QFX bank statements.
package ofx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// ErrNoDeposits is returned when a statement holds no matching deposits.
var ErrNoDeposits = errors.New("no deposits found in statement")

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// paycheckTypes are the transaction types that usually carry wages.
var paycheckTypes = map[string]bool{
	"DIRECTDEP": true,
	"DEP":       true,
	"CREDIT":    true,
}

// Deposit is one incoming bank transaction.
type Deposit struct {
	Date      time.Time
	Amount    decimal.Decimal
	ID        string
	Name      string
	AccountID string
	Type      string
}

// IsPaycheck reports whether the deposit's type is one wages arrive as.
func (d Deposit) IsPaycheck() bool {
	return paycheckTypes[d.Type]
}

// Parser reads OFX/QFX files.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be upper case.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// Some SGML exports drop the closing bracket of bare tags.
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// Deposits returns the credits of every bank statement in the file, oldest
// first. Credit card statements are ignored.
func (p *Parser) Deposits(ctx context.Context, reader io.Reader) ([]Deposit, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var deposits []Deposit
	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		accountID := string(stmt.BankAcctFrom.AcctID)
		for _, tx := range stmt.BankTranList.Transactions {
			d, err := convertDeposit(tx, accountID)
			if err != nil {
				slog.Warn("Skipping unreadable transaction",
					"account", accountID,
					"fitid", tx.FiTID,
					"error", err)
				continue
			}
			if d.Amount.IsPositive() {
				deposits = append(deposits, d)
			}
		}
	}

	sort.SliceStable(deposits, func(i, j int) bool {
		return deposits[i].Date.Before(deposits[j].Date)
	})

	slog.Debug("Parsed OFX deposits", "count", len(deposits))
	return deposits, nil
}

// LatestPaycheck returns the most recent paycheck deposit, falling back to
// the most recent deposit of any type.
func LatestPaycheck(deposits []Deposit) (Deposit, error) {
	if len(deposits) == 0 {
		return Deposit{}, ErrNoDeposits
	}
	for i := len(deposits) - 1; i >= 0; i-- {
		if deposits[i].IsPaycheck() {
			return deposits[i], nil
		}
	}
	return deposits[len(deposits)-1], nil
}

func convertDeposit(tx ofxgo.Transaction, accountID string) (Deposit, error) {
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(2))
	if err != nil {
		return Deposit{}, fmt.Errorf("invalid amount: %w", err)
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Payee != nil && tx.Payee.Name != "" {
		name = string(tx.Payee.Name)
	}
	if name == "" {
		name = strings.TrimSpace(string(tx.Memo))
	}

	return Deposit{
		ID:        string(tx.FiTID),
		Date:      tx.DtPosted.Time,
		Name:      name,
		Amount:    amount,
		AccountID: accountID,
		Type:      tx.TrnType.String(),
	}, nil
}
