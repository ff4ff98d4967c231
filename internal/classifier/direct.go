package classifier

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// directSystemPrompt demands a bare uppercase YES or NO verdict.
const directSystemPrompt = "你是一个严格的分类器。判断给定标题是否包含明星（人名/艺名）信息。只回答大写的 YES 或 NO，不要添加额外说明。"

// TitleClassifier decides whether a title directly names a public figure.
type TitleClassifier struct {
	oracle Oracle
	logger *zap.Logger
}

func NewTitleClassifier(oracle Oracle, logger *zap.Logger) *TitleClassifier {
	return &TitleClassifier{oracle: oracle, logger: logger}
}

// ClassifyTitle returns the oracle's verdict for one title plus the
// case-normalized raw response. An oracle failure is a negative verdict
// with the error text retained as the response, never a hard error.
func (c *TitleClassifier) ClassifyTitle(ctx context.Context, title string) (bool, string) {
	text, err := c.oracle.Complete(ctx, directSystemPrompt, title, false)
	if err != nil {
		c.logger.Error("direct classification call failed", zap.Error(err))
		return false, "ERROR: " + err.Error()
	}

	text = strings.ToUpper(strings.TrimSpace(text))
	if strings.HasPrefix(text, "YES") {
		return true, text
	}
	if strings.HasPrefix(text, "NO") {
		return false, text
	}

	// Chatty models sometimes bury the verdict mid-sentence.
	return strings.Contains(text, "YES"), text
}
