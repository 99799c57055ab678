// Package headless renders JavaScript-walled pages in a real browser and
// returns the settled DOM. It is the expensive fallback used only when the
// plain HTTP path produced a challenge page or nothing at all.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// renderTimeout bounds a single page render independently of the caller's
// context. Challenge pages that never settle would otherwise hang a whole
// batch.
const renderTimeout = 45 * time.Second

// settleDelay gives late XHR-driven content a chance to land after the
// initial load event.
const settleDelay = 3 * time.Second

// inlineShadowDOM walks open shadow roots and splices their markup into the
// light DOM so the serialized document contains web-component content.
const inlineShadowDOM = `(() => {
	const inline = (root) => {
		for (const el of root.querySelectorAll('*')) {
			if (el.shadowRoot) {
				inline(el.shadowRoot);
				el.innerHTML = el.shadowRoot.innerHTML + el.innerHTML;
			}
		}
	};
	inline(document);
	return document.documentElement.outerHTML;
})()`

type Renderer struct {
	browserPath string
}

// NewRenderer returns a Renderer. browserPath may be empty, in which case
// chromedp locates a system Chrome or Chromium on its own.
func NewRenderer(browserPath string) *Renderer {
	return &Renderer{browserPath: browserPath}
}

// Render loads url in a headless browser, waits for the page to settle, and
// returns the full HTML with shadow DOM content inlined.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if r.browserPath != "" {
		opts = append(opts, chromedp.ExecPath(r.browserPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	renderCtx, cancelRender := context.WithTimeout(browserCtx, renderTimeout)
	defer cancelRender()

	var html string
	err := chromedp.Run(renderCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(settleDelay),
		chromedp.Evaluate(inlineShadowDOM, &html),
	)
	if err != nil {
		return "", fmt.Errorf("headless render of %s failed: %w", url, err)
	}
	return html, nil
}
