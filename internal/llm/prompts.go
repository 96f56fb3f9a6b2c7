package llm

import "fmt"

// The model is asked to reason in English and answer in Simplified Chinese.
// Downstream rendering relies on the **核心观点** / **关键要点** layout.
const systemPrompt = `You are a professional information analyst.
IMPORTANT: You MUST think and reason in English internally,
but your final output MUST be in Simplified Chinese.

Your task is to analyze articles and provide concise, insightful summaries.`

const outputFormat = `Then provide:
1. One-sentence core insight (核心观点)
2. Three key takeaways as bullet points (关键要点)

Format your response EXACTLY as:
**核心观点**: [your one-sentence insight in Chinese]

**关键要点**:
- [point 1 in Chinese]
- [point 2 in Chinese]
- [point 3 in Chinese]

Remember: Think in English, output in Chinese.`

func contentPrompt(url, content, category string) string {
	return fmt.Sprintf(`Article Category: %s
Article URL: %s
Article Content:
%s

Please analyze this article.
%s`, category, url, content, outputFormat)
}

func urlPrompt(url, category string) string {
	return fmt.Sprintf(`Article Category: %s

Please read and analyze the article at this URL: %s

%s`, category, url, outputFormat)
}
