package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/expense-tracker/internal/model"
)

// OFXAccount is the registry identifier for generic OFX/QFX downloads.
const OFXAccount = "ofx"

// OFXParser parses OFX and QFX bank or credit card statements.
// Any institution offering OFX downloads can be registered under its own
// account identifier with RegisterOFX.
type OFXParser struct {
	account string
}

// NewOFXParser returns an OFX parser that tags transactions with account.
func NewOFXParser(account string) *OFXParser {
	return &OFXParser{account: account}
}

// Account returns the registry identifier.
func (p *OFXParser) Account() string { return p.account }

// Parse reads an OFX response and returns its bank and card transactions.
func (p *OFXParser) Parse(r io.Reader) (*Result, error) {
	resp, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing OFX: %w", err)
	}

	var lists []*ofxgo.TransactionList
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	if len(lists) == 0 {
		return nil, errors.New("OFX file has no bank or credit card statement")
	}

	res := &Result{}
	row := 0
	for _, list := range lists {
		for _, t := range list.Transactions {
			row++
			txn, err := p.transaction(t)
			if err != nil {
				res.fail(p.account, row, "FITID "+t.FiTID.String(), err)
				continue
			}
			res.add(txn)
		}
	}
	return res, nil
}

func (p *OFXParser) transaction(t ofxgo.Transaction) (model.Transaction, error) {
	posted := t.DtPosted.Time
	if posted.IsZero() && t.DtUser != nil {
		posted = t.DtUser.Time
	}
	if posted.IsZero() {
		return model.Transaction{}, errors.New("missing posted and user date")
	}

	desc := strings.TrimSpace(t.Name.String())
	if desc == "" {
		desc = strings.TrimSpace(t.Memo.String())
	}

	amount, err := decimal.NewFromString(t.TrnAmt.FloatString(4))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount: %w", err)
	}
	amount, typ := directionFromSign(amount, model.Debit)

	txn, err := model.New(civil.DateOf(posted), desc, amount, typ, p.account)
	if err != nil {
		return model.Transaction{}, err
	}
	txn.RawData = model.RawData{
		"fitid":   t.FiTID.String(),
		"trntype": t.TrnType.String(),
		"amount":  t.TrnAmt.FloatString(2),
	}
	if memo := strings.TrimSpace(t.Memo.String()); memo != "" {
		txn.RawData["memo"] = memo
	}
	return txn, nil
}

// RegisterOFX adds an OFX parser under each of accounts. Existing accounts
// are never replaced.
func RegisterOFX(reg *Registry, accounts []string) error {
	for i, account := range accounts {
		account := normalizeAccount(account)
		if account == "" {
			return fmt.Errorf("ofx_accounts[%d]: account is required", i)
		}
		if reg.Has(account) {
			return fmt.Errorf("ofx_accounts[%d]: account %q is already registered", i, account)
		}
		reg.Register(account, func() Parser { return NewOFXParser(account) })
	}
	return nil
}
