// Package timeline talks to X.com through an authenticated browser session:
// fetching candidate posts, posting tweets and replies, and classifying
// session failures.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	browseropts "postpilot/internal/browser"
	"postpilot/internal/types"
)

// Session failure classification. Callers branch on these with errors.Is.
var (
	ErrNoSession      = errors.New("no stored session")
	ErrSessionExpired = errors.New("session expired")
	ErrBlocked        = errors.New("account soft-blocked by provider")
)

// Client fetches and posts through chromedp
type Client struct {
	headless bool
}

// New creates a new timeline client
func New(headless bool) *Client {
	return &Client{headless: headless}
}

// FetchTimeline fetches up to count posts from the home feed
func (c *Client) FetchTimeline(ctx context.Context, cookies []*network.Cookie, count int) ([]types.CandidateItem, error) {
	browserCtx, cancel, err := c.newBrowserCtx(ctx, cookies, 5*time.Minute)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate("https://x.com/home"),
	); err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}

	if err := c.classifyPage(browserCtx); err != nil {
		return nil, err
	}

	if err := chromedp.Run(browserCtx,
		chromedp.WaitVisible(WaitForTweets, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("feed never rendered: %w", err)
	}

	return c.extractItems(browserCtx, count)
}

// Post publishes text, optionally as a reply to an existing post, and
// returns the external receipt.
func (c *Client) Post(ctx context.Context, cookies []*network.Cookie, text, inReplyTo string) (types.PostReceipt, error) {
	browserCtx, cancel, err := c.newBrowserCtx(ctx, cookies, 3*time.Minute)
	if err != nil {
		return types.PostReceipt{}, err
	}
	defer cancel()

	if inReplyTo != "" {
		err = c.openReplyComposer(browserCtx, inReplyTo)
	} else {
		err = c.openComposer(browserCtx)
	}
	if err != nil {
		return types.PostReceipt{}, err
	}

	if err := chromedp.Run(browserCtx,
		chromedp.WaitVisible(ComposeEditor, chromedp.ByQuery),
		chromedp.Click(ComposeEditor, chromedp.ByQuery),
		chromedp.SendKeys(ComposeEditor, text, chromedp.ByQuery),
		chromedp.Click(ComposeSubmit, chromedp.ByQuery),
	); err != nil {
		return types.PostReceipt{}, fmt.Errorf("failed to submit post: %w", err)
	}

	// X surfaces the new post's permalink in a confirmation toast. Missing
	// it is not a post failure; the receipt just lacks the external id.
	receipt := types.PostReceipt{PostedAt: time.Now()}
	var href string
	toastCtx, toastCancel := context.WithTimeout(browserCtx, 10*time.Second)
	defer toastCancel()
	if err := chromedp.Run(toastCtx,
		chromedp.AttributeValue(`[data-testid="toast"] a[href*="/status/"]`, "href", &href, nil, chromedp.ByQuery),
	); err == nil && href != "" {
		receipt.URL = "https://x.com" + href
		receipt.ExternalID = statusIDFromPath(href)
	}

	return receipt, nil
}

// VerifySession checks that the stored cookies still authenticate, and
// classifies the failure when they do not.
func (c *Client) VerifySession(ctx context.Context, cookies []*network.Cookie) error {
	browserCtx, cancel, err := c.newBrowserCtx(ctx, cookies, 2*time.Minute)
	if err != nil {
		return err
	}
	defer cancel()

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate("https://x.com/home"),
	); err != nil {
		return fmt.Errorf("failed to load home: %w", err)
	}

	return c.classifyPage(browserCtx)
}

// classifyPage inspects the rendered page for a block interstitial or a
// login redirect.
func (c *Client) classifyPage(ctx context.Context) error {
	var state struct {
		Body     string `json:"body"`
		HasHome  bool   `json:"hasHome"`
		HasLogin bool   `json:"hasLogin"`
	}

	err := chromedp.Run(ctx,
		chromedp.Sleep(2*time.Second), // let client-side redirects settle
		chromedp.Evaluate(fmt.Sprintf(`({
			body: document.body ? document.body.innerText.slice(0, 4000) : "",
			hasHome: !!document.querySelector(%q),
			hasLogin: !!document.querySelector(%q),
		})`, HomeIndicator, LoginForm), &state),
	)
	if err != nil {
		return fmt.Errorf("failed to inspect page: %w", err)
	}

	for _, sig := range blockPageSignatures {
		if strings.Contains(state.Body, sig) {
			return fmt.Errorf("%w: %q", ErrBlocked, sig)
		}
	}
	if state.HasLogin && !state.HasHome {
		return ErrSessionExpired
	}
	if !state.HasHome {
		return fmt.Errorf("%w: home feed not reachable", ErrSessionExpired)
	}
	return nil
}

// newBrowserCtx builds an authenticated browser context with a deadline
func (c *Client) newBrowserCtx(ctx context.Context, cookies []*network.Cookie, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if len(cookies) == 0 {
		return nil, nil, ErrNoSession
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, browseropts.Options(c.headless)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, timeout)

	cancel := func() {
		timeoutCancel()
		browserCancel()
		allocCancel()
	}

	if err := c.injectCookies(browserCtx, cookies); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to inject cookies: %w", err)
	}

	return browserCtx, cancel, nil
}

// injectCookies sets cookies in the browser context
func (c *Client) injectCookies(ctx context.Context, cookies []*network.Cookie) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, ck := range cookies {
				err := network.SetCookie(ck.Name, ck.Value).
					WithDomain(ck.Domain).
					WithPath(ck.Path).
					WithSecure(ck.Secure).
					WithHTTPOnly(ck.HTTPOnly).
					WithSameSite(ck.SameSite).
					Do(ctx)

				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}

// extractItems scrolls the feed and pulls candidate posts out of the DOM
func (c *Client) extractItems(ctx context.Context, count int) ([]types.CandidateItem, error) {
	var items []types.CandidateItem
	seenIDs := make(map[string]bool)
	scrollAttempts := 0
	maxScrollAttempts := count/5 + 3 // ~5 posts per viewport

	for len(items) < count && scrollAttempts < maxScrollAttempts {
		batch, err := c.extractVisibleItems(ctx)
		if err != nil {
			return nil, err
		}

		for _, it := range batch {
			if it.ID != "" && !seenIDs[it.ID] {
				seenIDs[it.ID] = true
				items = append(items, it)
			}
		}

		if err := chromedp.Run(ctx,
			chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil),
		); err != nil {
			return nil, err
		}

		// Wait for new content to load
		time.Sleep(time.Duration(500+scrollAttempts*100) * time.Millisecond)
		scrollAttempts++
	}

	if len(items) > count {
		items = items[:count]
	}
	return items, nil
}

// extractVisibleItems reads every rendered tweet article in one evaluate call
func (c *Client) extractVisibleItems(ctx context.Context) ([]types.CandidateItem, error) {
	js := fmt.Sprintf(`
	Array.from(document.querySelectorAll(%q)).map(article => {
		const link = article.querySelector(%q);
		const href = link ? link.getAttribute("href") : "";
		const parts = href.split("/status/");
		const text = article.querySelector(%q);
		const author = article.querySelector(%q);
		const handle = author ? (author.innerText.split("@")[1] || "").split("\n")[0] : "";
		const name = author ? author.innerText.split("\n")[0] : "";
		const metric = sel => {
			const el = article.querySelector(sel);
			const n = el ? parseInt((el.getAttribute("aria-label") || "0").replace(/\D/g, "")) : 0;
			return isNaN(n) ? 0 : n;
		};
		return {
			id: parts.length > 1 ? parts[1].split(/[^0-9]/)[0] : "",
			author_handle: handle,
			author_name: name,
			text: text ? text.innerText : "",
			likes: metric(%q),
			retweets: metric(%q),
			replies: metric(%q),
			is_retweet: !!article.querySelector(%q),
			is_reply: false,
			url: href ? "https://x.com" + href : "",
		};
	})`, TweetArticle, TweetLink, TweetText, TweetAuthor,
		LikeCount, RetweetCount, ReplyCount, RetweetIndicator)

	var items []types.CandidateItem
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &items)); err != nil {
		return nil, fmt.Errorf("failed to extract posts: %w", err)
	}
	return items, nil
}

func (c *Client) openComposer(ctx context.Context) error {
	if err := chromedp.Run(ctx,
		chromedp.Navigate("https://x.com/home"),
	); err != nil {
		return fmt.Errorf("failed to load home: %w", err)
	}
	if err := c.classifyPage(ctx); err != nil {
		return err
	}
	return chromedp.Run(ctx,
		chromedp.Click(ComposeButton, chromedp.ByQuery),
	)
}

func (c *Client) openReplyComposer(ctx context.Context, statusID string) error {
	if err := chromedp.Run(ctx,
		chromedp.Navigate("https://x.com/i/status/"+statusID),
	); err != nil {
		return fmt.Errorf("failed to load post %s: %w", statusID, err)
	}
	if err := c.classifyPage(ctx); err != nil {
		return err
	}
	return chromedp.Run(ctx,
		chromedp.WaitVisible(TweetArticle, chromedp.ByQuery),
		chromedp.Click(ReplyOpener, chromedp.ByQuery),
	)
}

func statusIDFromPath(href string) string {
	parts := strings.Split(href, "/status/")
	if len(parts) < 2 {
		return ""
	}
	id := parts[1]
	for i, r := range id {
		if r < '0' || r > '9' {
			return id[:i]
		}
	}
	return id
}
