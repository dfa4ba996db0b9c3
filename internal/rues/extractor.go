package rues

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/coverifica/consultas-co-api/internal/browser"
	"github.com/coverifica/consultas-co-api/internal/config"
	"github.com/coverifica/consultas-co-api/internal/models"
)

// errUpstreamSilent marks a category whose in-flight indicator never
// cleared: the remote API never answered. Distinct from "no record found".
var errUpstreamSilent = errors.New("registry api did not respond")

// Selectors for the registry search UI.
const (
	confirmDialogSelector  = "button.swal2-confirm"
	categorySelectSelector = "select#tipoBusqueda"
	identInputSelector     = "input#txtNIT"
	submitSelector         = "button.btn-buscar"
	spinnerSelector        = "button.btn-buscar .spinner-border"
	noResultsSelector      = ".busqueda-sin-resultados"
	resultCardSelector     = ".resultados-busqueda .card-resultado"
	cardStatusSelector     = ".estado-matricula"
	cardDetailSelector     = "a.ver-detalle"
	generalPanelSelector   = "#informacion-general"
	activityTabSelector    = "a[href='#actividad-economica']"
	activityPanelSelector  = "#actividad-economica"
	legalRepTabSelector    = "a[href='#representante-legal']"
	legalRepPanelSelector  = "#representante-legal"
	fieldRowSelector       = ".dato"
	fieldLabelSelector     = ".dato-label"
	fieldValueSelector     = ".dato-valor"
)

const activeStatusLabel = "Activa"

// Extractor runs the category-search state machine on one page. It assumes
// the page is already on the registry's search screen.
type Extractor struct {
	page   browser.Page
	cfg    config.RuesConfig
	logger zerolog.Logger
}

// NewExtractor builds an extractor over one page.
func NewExtractor(page browser.Page, cfg config.RuesConfig, logger zerolog.Logger) *Extractor {
	return &Extractor{page: page, cfg: cfg, logger: logger}
}

// Search tries every category in order until one yields a record. When all
// categories respond but none has the record it returns NotFoundError; when
// none of them responds at all it returns UpstreamUnavailableError instead,
// because that failure says nothing about the input.
func (e *Extractor) Search(ctx context.Context, identification string) (*models.ExtractedRecord, error) {
	attempted := make([]string, 0, len(Categories()))
	silent := 0

	for _, cat := range Categories() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempted = append(attempted, cat.Label())

		record, err := e.searchCategory(cat, identification)
		if errors.Is(err, errUpstreamSilent) {
			silent++
			e.logger.Warn().Stringer("category", cat).Msg("registry api did not respond, trying next category")
			continue
		}
		if err != nil {
			return nil, err
		}
		if record != nil {
			e.logger.Info().Stringer("category", cat).Str("identification", identification).Msg("record found")
			return record, nil
		}
		e.logger.Debug().Stringer("category", cat).Msg("no record under category")
	}

	if silent == len(Categories()) {
		return nil, &models.UpstreamUnavailableError{Identification: identification}
	}
	return nil, &models.NotFoundError{Identification: identification, Categories: attempted}
}

// searchCategory runs one category: select, submit, wait out the spinner,
// then either report not-found (nil, nil) or extract the record.
func (e *Extractor) searchCategory(cat Category, identification string) (*models.ExtractedRecord, error) {
	e.dismissDialog()

	if err := e.page.SelectOption(categorySelectSelector, cat.Label()); err != nil {
		return nil, &models.PageStateError{Message: fmt.Sprintf("could not select category %q: %v", cat.Label(), err)}
	}
	if err := e.page.Fill(identInputSelector, identification); err != nil {
		return nil, &models.PageStateError{Message: fmt.Sprintf("could not fill identification input: %v", err)}
	}
	// Several copies of the submit control exist in the DOM; only the
	// currently-displayed one reacts to clicks.
	if err := e.page.ClickDisplayed(submitSelector); err != nil {
		return nil, &models.PageStateError{Message: fmt.Sprintf("could not click search button: %v", err)}
	}

	// The spinner may come and go faster than we can observe, so a missed
	// appearance is tolerated. A spinner that never leaves is not: that is
	// the "API did not respond" case.
	if err := e.page.WaitVisible(spinnerSelector, e.cfg.SpinnerAppearWait); err != nil {
		e.logger.Debug().Stringer("category", cat).Msg("spinner never appeared, assuming fast response")
	}
	if err := e.page.WaitGone(spinnerSelector, e.cfg.SpinnerGoneWait); err != nil {
		return nil, errUpstreamSilent
	}

	if visible, err := e.page.Visible(noResultsSelector); err == nil && visible {
		return nil, nil
	}
	has, err := e.page.Has(resultCardSelector)
	if err != nil {
		return nil, &models.PageStateError{Message: fmt.Sprintf("could not inspect search results: %v", err)}
	}
	if !has {
		return nil, nil
	}

	return e.extractRecord(cat, identification)
}

// dismissDialog closes the blocking confirmation dialog the site sometimes
// shows on load. Best effort, absence is the normal case.
func (e *Extractor) dismissDialog() {
	if visible, err := e.page.Visible(confirmDialogSelector); err == nil && visible {
		if err := e.page.Click(confirmDialogSelector); err != nil {
			e.logger.Debug().Err(err).Msg("confirmation dialog dismiss failed")
		}
	}
}

// extractRecord pulls the summary from the chosen result card, opens its
// detail view and merges the three detail tabs into one record.
func (e *Extractor) extractRecord(cat Category, identification string) (*models.ExtractedRecord, error) {
	doc, err := e.document()
	if err != nil {
		return nil, &models.PageStateError{Message: fmt.Sprintf("could not read results page: %v", err)}
	}

	card, idx := pickActiveCard(doc)
	if card == nil {
		return nil, &models.PageStateError{Message: "result cards disappeared before extraction"}
	}

	record := &models.ExtractedRecord{
		Identification: identification,
		GeneralInfo:    map[string]string{},
	}
	applyKnownFields(record, fieldPairs(card))

	if err := e.openDetail(idx); err != nil {
		return nil, err
	}
	if err := e.page.WaitVisible(generalPanelSelector, e.cfg.DetailWait); err != nil {
		return nil, &models.PageStateError{Message: fmt.Sprintf("detail view did not render: %v", err)}
	}

	if doc, err := e.document(); err == nil {
		pairs := fieldPairs(doc.Find(generalPanelSelector))
		record.GeneralInfo = pairs
		applyKnownFields(record, pairs)
	}

	record.EconomicActivities = e.extractActivities()
	record.LegalRepresentative = e.extractLegalRepresentative()

	// The category we searched under is authoritative; the page sometimes
	// displays a stale or generic type label.
	record.CompanyType = cat.Label()
	return record, nil
}

// openDetail clicks the first detail link inside the chosen card. Cards can
// carry several anchors; only the first one is the detail view.
func (e *Extractor) openDetail(cardIndex int) error {
	js := fmt.Sprintf(`() => {
		const cards = document.querySelectorAll(%q);
		const card = cards[%d];
		if (!card) { return 'missing-card'; }
		const link = card.querySelector(%q);
		if (!link) { return 'missing-link'; }
		link.click();
		return 'clicked';
	}`, resultCardSelector, cardIndex, cardDetailSelector)

	result, err := e.page.Eval(js)
	if err != nil {
		return &models.PageStateError{Message: fmt.Sprintf("could not open detail view: %v", err)}
	}
	if result != "clicked" {
		return &models.PageStateError{Message: "could not open detail view: " + result}
	}
	return nil
}

// extractActivities clicks the economic-activity tab and retries parsing
// until the lazily-loaded panel has rows.
func (e *Extractor) extractActivities() []models.EconomicActivity {
	if err := e.page.Click(activityTabSelector); err != nil {
		e.logger.Warn().Err(err).Msg("economic-activity tab trigger not clickable")
		return nil
	}
	time.Sleep(e.cfg.TabSettleDelay)

	activities, ok := retryExtract(e.cfg.TabRetryAttempts, e.cfg.TabRetryDelay, func() ([]models.EconomicActivity, bool) {
		doc, err := e.document()
		if err != nil {
			return nil, false
		}
		acts := parseActivities(doc)
		return acts, len(acts) > 0
	})
	if !ok {
		e.logger.Warn().Int("attempts", e.cfg.TabRetryAttempts).Msg("economic-activity tab never populated")
		return nil
	}
	return activities
}

// extractLegalRepresentative clicks the legal-representative tab and reads
// its single free-text field.
func (e *Extractor) extractLegalRepresentative() string {
	if err := e.page.Click(legalRepTabSelector); err != nil {
		e.logger.Warn().Err(err).Msg("legal-representative tab trigger not clickable")
		return ""
	}
	time.Sleep(e.cfg.TabSettleDelay)

	doc, err := e.document()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find(legalRepPanelSelector).Find(fieldValueSelector).First().Text())
}

func (e *Extractor) document() (*goquery.Document, error) {
	html, err := e.page.HTML()
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// pickActiveCard chooses among possibly-duplicate result cards: the first
// one whose status reads "Activa" wins, otherwise the last card. The
// last-card default mirrors observed site behavior and is a policy choice,
// not a documented rule.
func pickActiveCard(doc *goquery.Document) (*goquery.Selection, int) {
	cards := doc.Find(resultCardSelector)
	if cards.Length() == 0 {
		return nil, -1
	}

	chosen := cards.Last()
	chosenIdx := cards.Length() - 1
	cards.EachWithBreak(func(i int, s *goquery.Selection) bool {
		status := strings.TrimSpace(s.Find(cardStatusSelector).First().Text())
		if strings.EqualFold(status, activeStatusLabel) {
			chosen = s
			chosenIdx = i
			return false
		}
		return true
	})
	return chosen, chosenIdx
}

// fieldPairs walks the label/value rows under a node and returns them keyed
// by normalized label.
func fieldPairs(s *goquery.Selection) map[string]string {
	out := make(map[string]string)
	s.Find(fieldRowSelector).Each(func(_ int, row *goquery.Selection) {
		label := normalizeLabel(row.Find(fieldLabelSelector).First().Text())
		value := strings.TrimSpace(row.Find(fieldValueSelector).First().Text())
		if label != "" && value != "" {
			out[label] = value
		}
	})
	return out
}

// applyKnownFields copies recognized labels onto the record's typed fields.
// Existing values are kept: the card summary is read before the detail
// tabs and earlier stages win for typed fields.
func applyKnownFields(record *models.ExtractedRecord, pairs map[string]string) {
	set := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v, ok := pairs[k]; ok {
				*dst = v
				return
			}
		}
	}

	set(&record.Name, "razon_social", "nombre")
	set(&record.Category, "categoria")
	set(&record.ChamberOfCommerce, "camara_de_comercio")
	set(&record.MatriculationNumber, "numero_de_matricula", "matricula")
	set(&record.RegistrationNumber, "numero_de_registro")
	set(&record.Status, "estado", "estado_de_la_matricula")
}

// parseActivities reads the CIIU code/description rows from the
// economic-activity panel.
func parseActivities(doc *goquery.Document) []models.EconomicActivity {
	var out []models.EconomicActivity
	doc.Find(activityPanelSelector + " table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		code := strings.TrimSpace(cells.Eq(0).Text())
		desc := strings.TrimSpace(cells.Eq(1).Text())
		if code == "" && desc == "" {
			return
		}
		out = append(out, models.EconomicActivity{Code: code, Description: desc})
	})
	return out
}
