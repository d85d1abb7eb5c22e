package fetcher

import (
	"context"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// StealthScript hides the most common headless-automation markers. It runs
// before any page script on every new document.
const StealthScript = `
(() => {
  'use strict';
  const define = (obj, prop, value) => {
    try { Object.defineProperty(obj, prop, { get: () => value, configurable: true }); } catch (e) {}
  };

  define(navigator, 'webdriver', undefined);
  try { delete Object.getPrototypeOf(navigator).webdriver; } catch (e) {}

  define(navigator, 'languages', Object.freeze(['pt-BR', 'pt', 'en-US', 'en']));
  if (!navigator.hardwareConcurrency) define(navigator, 'hardwareConcurrency', 4);
  if (!navigator.deviceMemory) define(navigator, 'deviceMemory', 8);

  if (navigator.plugins && navigator.plugins.length === 0) {
    const names = ['PDF Viewer', 'Chrome PDF Viewer', 'Chromium PDF Viewer'];
    const plugins = names.map((name) => ({ name, filename: 'internal-pdf-viewer', description: 'Portable Document Format', length: 1 }));
    define(navigator, 'plugins', Object.assign(plugins, { item: (i) => plugins[i] || null, namedItem: (n) => plugins.find((p) => p.name === n) || null, refresh: () => {} }));
  }

  window.chrome = window.chrome || {};
  window.chrome.runtime = window.chrome.runtime || { connect: () => {}, sendMessage: () => {} };

  if (window.Permissions && Permissions.prototype.query) {
    const query = Permissions.prototype.query;
    Permissions.prototype.query = function (params) {
      if (params && params.name === 'notifications') {
        return Promise.resolve({ state: Notification.permission });
      }
      return query.call(this, params);
    };
  }
})();
`

// StealthExecAllocatorOptions returns Chrome flags that hide automation and
// skip images and web fonts.
func StealthExecAllocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	return []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-default-apps", true),

		// Images and remote fonts are never needed to read prices.
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("disable-remote-fonts", true),

		chromedp.WindowSize(1024, 768),
		chromedp.Flag("lang", "pt-BR"),
		chromedp.Flag("accept-lang", "pt-BR,pt;q=0.9"),
	}
}

// InjectStealthScript returns a chromedp.Action that registers StealthScript
// for every new document. Run it before navigation.
func InjectStealthScript() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(StealthScript).Do(ctx)
		return err
	})
}
