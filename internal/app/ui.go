package app

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"net/url"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"yashubustudio/biasmap/biasmap"
)

const (
	orderAscending  = "Ascending probability"
	orderDescending = "Descending probability"
	orderCatalog    = "Catalog order"
)

type tableColumn struct {
	Title  string
	Width  float32
	Render func(idx int, row biasmap.ScoredRegion) string
}

type uiState struct {
	service *biasmap.Service
	cfg     biasmap.Config

	w          fyne.Window
	input      *widget.Entry
	log        *widget.Entry
	status     *widget.Label
	progress   *widget.ProgressBarInfinite
	summary    *widget.Label
	share      *widget.Hyperlink
	order      *widget.Select
	resTbl     *widget.Table
	mapImg     *canvas.Image
	shapes     map[string]biasmap.Shape
	mapSeq     int
	columns    []tableColumn
	statusBind binding.String
	logBind    binding.String

	mu    sync.Mutex
	table biasmap.ResultTable
	rows  []biasmap.ScoredRegion

	runBtn    *widget.Button
	exportBtn *widget.Button
}

func buildUI(a fyne.App, svc *biasmap.Service, sink *logSink) *uiState {
	u := &uiState{service: svc, cfg: svc.Config()}
	u.w = a.NewWindow("🗺️ Bias map")

	u.statusBind = binding.NewString()
	_ = u.statusBind.Set(fmt.Sprintf("%d countries loaded", len(svc.Regions())))
	u.logBind = binding.NewString()
	sink.Subscribe(func(text string) {
		fyne.Do(func() { _ = u.logBind.Set(text) })
	})

	intro := widget.NewLabel("Type in a sentence using '*' as a country placeholder. Every country name is substituted " +
		"and scored by the sentiment model; the table shows the positive class probability per country.")
	intro.Wrapping = fyne.TextWrapWord

	u.input = widget.NewEntry()
	u.input.SetText(u.cfg.DefaultTemplate)
	u.input.OnSubmitted = func(string) { u.onRun() }
	u.input.Validator = biasmap.ValidateTemplate

	examples := make([]fyne.CanvasObject, 0, 3)
	for _, tmpl := range biasmap.ExampleTemplates() {
		tmpl := tmpl
		examples = append(examples, widget.NewButton(tmpl, func() {
			u.input.SetText(tmpl)
			u.onRun()
		}))
	}

	u.log = widget.NewEntryWithData(u.logBind)
	u.log.MultiLine = true
	u.log.Wrapping = fyne.TextWrapWord
	u.log.Disable()

	u.status = widget.NewLabelWithData(u.statusBind)
	u.progress = widget.NewProgressBarInfinite()
	u.progress.Hide()
	u.summary = widget.NewLabel("")
	u.summary.Wrapping = fyne.TextWrapWord
	u.share = widget.NewHyperlink("Share on Twitter", nil)
	u.share.Hide()

	u.order = widget.NewSelect([]string{orderAscending, orderDescending, orderCatalog}, func(string) {
		u.refreshRows()
	})
	u.order.SetSelected(orderAscending)

	u.runBtn = widget.NewButtonWithIcon("Run", theme.ConfirmIcon(), func() { u.onRun() })
	u.exportBtn = widget.NewButtonWithIcon("Export CSV", theme.DocumentSaveIcon(), func() { u.onExport() })
	u.exportBtn.Disable()

	u.columns = []tableColumn{
		{Title: "#", Width: 60, Render: func(idx int, _ biasmap.ScoredRegion) string { return fmt.Sprint(idx + 1) }},
		{Title: "Country", Width: 280, Render: func(_ int, r biasmap.ScoredRegion) string { return r.Region.Name }},
		{Title: "Positive class probability", Width: 220, Render: func(_ int, r biasmap.ScoredRegion) string {
			return fmt.Sprintf("%.3f", r.PositiveProbability)
		}},
	}
	u.resTbl = widget.NewTable(
		func() (int, int) {
			u.mu.Lock()
			defer u.mu.Unlock()
			return len(u.rows) + 1, len(u.columns)
		},
		func() fyne.CanvasObject {
			swatch := canvas.NewRectangle(color.Transparent)
			return container.NewStack(swatch, widget.NewLabel(""))
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			stack := obj.(*fyne.Container)
			swatch := stack.Objects[0].(*canvas.Rectangle)
			lbl := stack.Objects[1].(*widget.Label)
			swatch.FillColor = color.Transparent
			if id.Row == 0 {
				lbl.TextStyle = fyne.TextStyle{Bold: true}
				lbl.SetText(u.columns[id.Col].Title)
				swatch.Refresh()
				return
			}
			lbl.TextStyle = fyne.TextStyle{}
			u.mu.Lock()
			idx := id.Row - 1
			if idx >= len(u.rows) {
				u.mu.Unlock()
				lbl.SetText("")
				swatch.Refresh()
				return
			}
			row := u.rows[idx]
			u.mu.Unlock()
			if id.Col == len(u.columns)-1 {
				swatch.FillColor = probabilityColor(row.PositiveProbability)
			}
			swatch.Refresh()
			lbl.SetText(u.columns[id.Col].Render(idx, row))
		},
	)
	for i, col := range u.columns {
		u.resTbl.SetColumnWidth(i, col.Width)
	}

	u.shapes = svc.Shapes()
	u.mapImg = canvas.NewImageFromResource(u.nextMap(nil))
	u.mapImg.FillMode = canvas.ImageFillContain
	u.mapImg.SetMinSize(fyne.NewSize(720, 290))
	tabs := container.NewAppTabs(
		container.NewTabItem("Map", u.mapImg),
		container.NewTabItem("Table", u.resTbl),
	)

	header := container.NewVBox(
		intro,
		container.NewBorder(nil, nil, nil, u.runBtn, u.input),
		widget.NewLabel("Or use other examples:"),
		container.NewGridWithColumns(len(examples), examples...),
		container.NewHBox(u.order, u.exportBtn, u.share),
		u.summary,
	)
	logScroll := container.NewVScroll(u.log)
	logScroll.SetMinSize(fyne.NewSize(200, 120))
	footer := container.NewVBox(u.progress, u.status, logScroll)

	u.w.SetContent(container.NewBorder(header, footer, nil, nil, tabs))
	u.w.Resize(fyne.NewSize(900, 760))
	return u
}

func (u *uiState) onRun() {
	template := u.input.Text
	if err := biasmap.ValidateTemplate(template); err != nil {
		title, msg := validationMessage(err)
		dialog.ShowInformation(title, msg, u.w)
		return
	}
	u.runBtn.Disable()
	u.progress.Show()
	u.progress.Start()
	_ = u.statusBind.Set("Scoring…")
	go func() {
		start := time.Now()
		table, err := u.service.Query(context.Background(), template)
		elapsed := time.Since(start)
		fyne.Do(func() {
			u.progress.Stop()
			u.progress.Hide()
			u.runBtn.Enable()
			if err != nil {
				_ = u.statusBind.Set("Scoring failed")
				dialog.ShowError(describeError(err), u.w)
				return
			}
			u.showTable(table)
			_ = u.statusBind.Set(fmt.Sprintf("%d countries scored in %.2fs", table.Len(), elapsed.Seconds()))
		})
	}()
}

func (u *uiState) showTable(table biasmap.ResultTable) {
	u.mu.Lock()
	u.table = table
	u.mu.Unlock()
	u.refreshRows()
	u.mapImg.Resource = u.nextMap(table.Triples())
	u.mapImg.Refresh()

	s := biasmap.Summarize(table)
	u.summary.SetText(fmt.Sprintf("Mean %.3f · most positive: %s (%.3f) · least positive: %s (%.3f)",
		s.Mean, s.MostPositive, s.Max, s.LeastPositive, s.Min))
	if link, err := url.Parse(biasmap.ShareURL(table, u.cfg.AppURL)); err == nil {
		u.share.SetURL(link)
		u.share.Show()
	}
	u.exportBtn.Enable()
}

func (u *uiState) refreshRows() {
	if u.order == nil || u.resTbl == nil {
		return
	}
	u.mu.Lock()
	u.rows = orderedRows(u.table, u.order.Selected)
	u.mu.Unlock()
	u.resTbl.Refresh()
}

func (u *uiState) onExport() {
	u.mu.Lock()
	table := u.table
	u.mu.Unlock()
	if table.Len() == 0 {
		return
	}
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		if uc == nil {
			return
		}
		defer uc.Close()
		if err := biasmap.WriteCSV(uc, table); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		_ = u.statusBind.Set("Saved " + uc.URI().Name())
	}, u.w)
	fd.SetFileName("biasmap.csv")
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	fd.Show()
}

func (u *uiState) nextMap(triples []biasmap.Triple) fyne.Resource {
	u.mapSeq++
	return choroplethResource(fmt.Sprintf("choropleth-%d.svg", u.mapSeq), triples, u.shapes)
}

// validationMessage turns a template error into a dialog title and body.
func validationMessage(err error) (title, msg string) {
	return "Use the placeholder", fmt.Sprintf("Type '%s' where the country name should go (%v).", biasmap.Placeholder, err)
}

// orderedRows returns the rows for display without touching the cached table.
func orderedRows(table biasmap.ResultTable, order string) []biasmap.ScoredRegion {
	switch order {
	case orderDescending:
		return table.Sorted(false)
	case orderCatalog:
		return table.Rows()
	default:
		return table.Sorted(true)
	}
}

// probabilityColor maps [0,1] onto a single-hue scale from pale to deep blue.
func probabilityColor(p float64) color.NRGBA {
	p = clamp01(p)
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*p + 0.5)
	}
	return color.NRGBA{R: lerp(240, 13), G: lerp(249, 8), B: lerp(255, 135), A: 255}
}

func describeError(err error) error {
	switch {
	case errors.Is(err, biasmap.ErrValidation):
		return fmt.Errorf("invalid template: %w", err)
	case errors.Is(err, biasmap.ErrOracleContract):
		return fmt.Errorf("the sentiment model returned an unexpected answer: %w", err)
	case errors.Is(err, biasmap.ErrOracleUnavailable):
		return fmt.Errorf("the sentiment model is unavailable, try again: %w", err)
	}
	return err
}
