package rendering

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Letter paper in inches.
const (
	paperWidthInches  = 8.5
	paperHeightInches = 11
)

// DefaultPrintTimeout bounds one PrintPDF call when ctx has no deadline.
const DefaultPrintTimeout = 60 * time.Second

// PrintPDF renders report to HTML and prints it with headless Chrome.
// Chrome or Chromium must be installed.
func PrintPDF(ctx context.Context, theme Theme, report *Report) ([]byte, error) {
	html, err := RenderHTML(theme, report)
	if err != nil {
		return nil, err
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if _, ok := ctx.Deadline(); !ok {
		browserCtx, cancel = context.WithTimeout(browserCtx, DefaultPrintTimeout)
		defer cancel()
	}

	generatedAt := report.generatedAt()
	header, footer := theme.Decorations(report.Title)
	margin := theme.MarginInches + 0.3 // room for the header and footer bands

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(header(generatedAt)).
				WithFooterTemplate(footer(generatedAt)).
				WithPaperWidth(paperWidthInches).
				WithPaperHeight(paperHeightInches).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(theme.MarginInches).
				WithMarginRight(theme.MarginInches).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, &RenderError{Format: "pdf", Message: "browser printing failed", Cause: err}
	}
	return pdf, nil
}
