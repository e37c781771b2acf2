package timeline

// X.com DOM selectors
// These are isolated here because X changes their DOM frequently
// Update these when fetching or posting breaks

const (
	// Feed selectors
	FeedContainer = `[data-testid="primaryColumn"]`
	TweetArticle  = `article[data-testid="tweet"]`

	// Tweet content selectors
	TweetText      = `[data-testid="tweetText"]`
	TweetAuthor    = `[data-testid="User-Name"]`
	TweetTimestamp = `time`
	TweetLink      = `a[href*="/status/"]`

	// Engagement selectors
	ReplyCount   = `[data-testid="reply"]`
	RetweetCount = `[data-testid="retweet"]`
	LikeCount    = `[data-testid="like"]`

	// Tweet type indicators
	RetweetIndicator = `[data-testid="socialContext"]`

	// Compose selectors
	ComposeButton = `[data-testid="SideNav_NewTweet_Button"]`
	ComposeEditor = `[data-testid="tweetTextarea_0"]`
	ComposeSubmit = `[data-testid="tweetButton"]`
	ReplyOpener   = `[data-testid="reply"]`

	// Login page indicators (for detecting auth state)
	HomeIndicator = `[data-testid="SideNav_NewTweet_Button"]`
	LoginForm     = `[data-testid="loginButton"]`
)

// Common wait conditions
const (
	WaitForFeed   = FeedContainer
	WaitForTweets = TweetArticle
)

// blockPageSignatures are phrases X renders on soft-block interstitials.
// Matching any of them classifies the session as provider-blocked.
var blockPageSignatures = []string{
	"Your account has been locked",
	"unusual login activity",
	"We've detected suspicious activity",
}
