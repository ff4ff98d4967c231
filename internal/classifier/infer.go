package classifier

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// inferSystemPrompt asks for the single most strongly associated public
// figure for a topic that does not directly name one, as a JSON object.
const inferSystemPrompt = `你是一个精通流行文化和网络热点的分析专家。你的任务是从一个不直接提及真实人物明星的标题中，推断出与之关联最紧密、在网络讨论中热度最高的现实世界明星（演员、导演、歌手、知名公众人物等）。

分析步骤：
1. 理解主题：识别标题所指的文化产品（电影、电视剧、综艺、书籍）、作品、事件、网络梗或抽象概念。
2. 寻找关联：思考该主题与哪些现实明星有最强、最直接的创造、表演或所有权关系（如导演、主演、原唱、作者、标志性人物）。
3. 评估热度：在网络讨论和公众认知中，哪位明星与该主题的绑定程度最深、讨论热度最高。
4. 严格返回格式：必须且只能返回一个有效的JSON对象。

返回格式：
- 如果可以明确推断出一个关联明星：
{"related_celebrity": "明星姓名", "reasoning": "简要解释为什么此明星关联度最高"}
- 如果标题是纯节日、普通日常事件或无法推断出明确明星：
{"related_celebrity": null, "reasoning": "解释原因"}

请确保 related_celebrity 字段只包含人名，不要带称谓和额外说明。`

// Inference is a non-null result from the inference stage.
type Inference struct {
	Name      string
	Reasoning string
}

// RelatedClassifier infers the public figure most strongly associated with
// a topic that does not directly name one.
type RelatedClassifier struct {
	oracle Oracle
	logger *zap.Logger
}

func NewRelatedClassifier(oracle Oracle, logger *zap.Logger) *RelatedClassifier {
	return &RelatedClassifier{oracle: oracle, logger: logger}
}

// Infer returns the associated figure for a title, or nil when the oracle
// names none, fails, or returns an unparseable structured response.
func (c *RelatedClassifier) Infer(ctx context.Context, title string) *Inference {
	text, err := c.oracle.Complete(ctx, inferSystemPrompt, "请分析以下标题，并推断最相关的明星：\n标题："+title, true)
	if err != nil {
		c.logger.Error("inference call failed", zap.String("title", title), zap.Error(err))
		return nil
	}

	var parsed struct {
		RelatedCelebrity *string `json:"related_celebrity"`
		Reasoning        string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(stripFences(text)), &parsed); err != nil {
		c.logger.Error("failed to parse inference response",
			zap.String("title", title),
			zap.String("raw", text))
		return nil
	}

	if parsed.RelatedCelebrity == nil || *parsed.RelatedCelebrity == "" {
		c.logger.Info("no associated figure inferred",
			zap.String("title", title),
			zap.String("reasoning", parsed.Reasoning))
		return nil
	}

	c.logger.Info("associated figure inferred",
		zap.String("title", title),
		zap.String("name", *parsed.RelatedCelebrity))
	return &Inference{Name: *parsed.RelatedCelebrity, Reasoning: parsed.Reasoning}
}
