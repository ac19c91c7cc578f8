package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// RecipeSheetData is a ficha técnica with every value already formatted.
type RecipeSheetData struct {
	OrgName        string
	RecipeName     string
	Category       string
	Version        string
	PortionCount   string
	PrepTime       string
	GeneratedAt    string
	Lines          []RecipeSheetLine
	TotalCost      string
	CostPerPortion string
	SalePrice      string
	GrossMargin    string
	CMV            string
	TargetCMV      string
	Classification string
	Warnings       []string
	// CostError replaces the cost summary when the recipe could not be costed.
	CostError string
}

type RecipeSheetLine struct {
	Product   string
	Quantity  string
	UnitPrice string
	Cost      string
	Note      string
}

var ErrEmptySheet = errors.New("recipe sheet has no name")

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateRecipeSheet(ctx context.Context, sheet RecipeSheetData) (io.Reader, error) {
	if sheet.RecipeName == "" {
		return nil, ErrEmptySheet
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, "Ficha técnica", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, sheet.OrgName, props.Text{
			Size:  10,
			Align: align.Right,
		}),
	)

	m.AddRow(22,
		col.New(8).Add(
			text.New(sheet.RecipeName, props.Text{Size: 14, Style: fontstyle.Bold}),
			text.New("Categoria: "+orDash(sheet.Category), props.Text{Top: 7}),
			text.New("Rendimento: "+sheet.PortionCount+" porções", props.Text{Top: 11}),
			text.New("Preparo: "+orDash(sheet.PrepTime), props.Text{Top: 15}),
		),
		col.New(4).Add(
			text.New("Versão "+sheet.Version, props.Text{Align: align.Right}),
			text.New("Gerado em "+sheet.GeneratedAt, props.Text{Top: 4, Align: align.Right, Size: 8}),
		),
	)

	m.AddRow(8,
		text.NewCol(5, "Ingrediente", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Quantidade", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Preço unit.", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Custo", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range sheet.Lines {
		name := item.Product
		if item.Note != "" {
			name += " (" + item.Note + ")"
		}
		m.AddRow(7,
			text.NewCol(5, name, props.Text{Size: 9}),
			text.NewCol(2, item.Quantity, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, item.Cost, props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(2, line.NewCol(12))

	if sheet.CostError != "" {
		m.AddRow(10,
			text.NewCol(12, "Custo indisponível: "+sheet.CostError, props.Text{Size: 10, Style: fontstyle.Bold}),
		)
	} else {
		summary := [][2]string{
			{"Custo total", sheet.TotalCost},
			{"Custo por porção", sheet.CostPerPortion},
			{"Preço de venda", orDash(sheet.SalePrice)},
			{"Margem bruta", orDash(sheet.GrossMargin)},
			{"CMV", orDash(sheet.CMV)},
			{"Meta de CMV", orDash(sheet.TargetCMV)},
			{"Classificação", sheet.Classification},
		}
		for _, row := range summary {
			m.AddRow(7,
				col.New(7),
				text.NewCol(2, row[0], props.Text{Size: 9}),
				text.NewCol(3, row[1], props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	for _, warning := range sheet.Warnings {
		m.AddRow(6, text.NewCol(12, "Aviso: "+warning, props.Text{Size: 8, Style: fontstyle.Italic}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
