package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrEmptyStatement = errors.New("empty statement")

// StatementData is the pre-formatted content of a payout statement.
type StatementData struct {
	PayoutID      string
	IssueDate     string
	Status        string
	Method        string
	Reference     string
	AffiliateName string
	AffiliateCode string
	AffiliateMail string
	PixKey        string

	Amount    string
	Approved  string
	Reserved  string
	Paid      string
	Available string

	Lines []StatementLine
}

type StatementLine struct {
	Label string
	Date  string
	Value string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	if data.PayoutID == "" {
		return nil, ErrEmptyStatement
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Payout statement", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.Status, props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Payout: "+data.PayoutID, props.Text{Top: 0}),
			text.New("Issued: "+data.IssueDate, props.Text{Top: 4}),
			text.New("Method: "+data.Method, props.Text{Top: 8}),
			text.New("Reference: "+orDash(data.Reference), props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New(data.AffiliateName, props.Text{Style: fontstyle.Bold}),
			text.New("Code: "+data.AffiliateCode, props.Text{Top: 4}),
			text.New(data.AffiliateMail, props.Text{Top: 8}),
			text.New("PIX: "+orDash(data.PixKey), props.Text{Top: 12}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, data.Amount+" payout", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(6, "Commission", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range data.Lines {
		m.AddRow(8,
			text.NewCol(6, line.Label, props.Text{Size: 9}),
			text.NewCol(3, line.Date, props.Text{Size: 9}),
			text.NewCol(3, line.Value, props.Text{Size: 9, Align: align.Right}),
		)
	}

	for _, total := range []StatementLine{
		{Label: "Approved", Value: data.Approved},
		{Label: "Reserved", Value: data.Reserved},
		{Label: "Paid", Value: data.Paid},
		{Label: "Available", Value: data.Available},
	} {
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, total.Label, props.Text{Size: 9}),
			text.NewCol(2, total.Value, props.Text{Size: 9, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
