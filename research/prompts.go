package research

import (
	"fmt"
	"time"
)

// currentDate 返回提示词中使用的人类可读日期.
func currentDate() string {
	return time.Now().Format("January 2, 2006")
}

const queryWriterInstructions = `Your goal is to generate sophisticated and diverse web search queries. These queries are intended for an advanced automated web research tool capable of analyzing complex results, following links, and synthesizing information.

Instructions:
- Always prefer a single search query, only add another query if the original question requests multiple aspects or elements and one query is not enough.
- Each query should focus on one specific aspect of the original question.
- Don't produce more than %d queries.
- Queries should be diverse, if the topic is broad, generate more than 1 query.
- Don't generate multiple similar queries, 1 is enough.
- Query should ensure that the most current information is gathered. The current date is %s.

Format:
- Format your response as a JSON object with these exact keys:
   - "rationale": Brief explanation of why these queries are relevant
   - "query": A list of search queries

Context: %s`

const webSearcherInstructions = `Conduct targeted web research on "%s" and synthesize the findings into a verifiable text artifact.

Instructions:
- The current date is %s.
- Consolidate key findings while meticulously tracking the source(s) for each specific piece of information.
- Only include the information found in the search results below, don't make up any information.
- Cite each claim with the bracketed source id it came from, for example [S1] or [S2].

Search results:

%s`

const kbSearcherInstructions = `Summarize what the internal knowledge base says about "%s".

Instructions:
- Only use the records below, don't make up any information.
- Cite each claim with the bracketed record id it came from, for example [K1] or [K2].
- If the records do not answer the question, say so plainly.

Knowledge base records:

%s`

const reflectionInstructions = `You are an expert research assistant analyzing summaries about "%s".

Instructions:
- Identify knowledge gaps or areas that need deeper exploration and generate a follow-up query.
- If provided summaries are sufficient to answer the user's question, don't generate a follow-up query.
- If there is a knowledge gap, generate a follow-up query that would help expand your understanding.
- Focus on technical details, implementation specifics, or emerging trends that weren't fully covered.

Output Format:
- Format your response as a JSON object with these exact keys:
   - "is_sufficient": true or false
   - "knowledge_gap": Describe what information is missing or needs clarification
   - "follow_up_queries": Write a specific list of questions to address this gap

Summaries:
%s`

const answerInstructions = `Generate a high-quality answer to the user's question based on the provided summaries.

Instructions:
- The current date is %s.
- You are the final step of a multi-step research process, don't mention that you are the final step.
- You have access to all the information gathered from the previous steps.
- Generate a high-quality answer to the user's question based on the provided summaries and the user's question.
- Include the sources you used from the summaries in the answer correctly, use markdown format (e.g. [source](link)). THIS IS A MUST.

User's question:
%s

Summaries:
%s`

func buildQueryWriterPrompt(topic string, maxQueries int) string {
	return fmt.Sprintf(queryWriterInstructions, maxQueries, currentDate(), topic)
}

func buildWebSearcherPrompt(query, section string) string {
	return fmt.Sprintf(webSearcherInstructions, query, currentDate(), section)
}

func buildKBSearcherPrompt(query, section string) string {
	return fmt.Sprintf(kbSearcherInstructions, query, section)
}

func buildReflectionPrompt(topic, summaries string) string {
	return fmt.Sprintf(reflectionInstructions, topic, summaries)
}

func buildAnswerPrompt(topic, summaries string) string {
	return fmt.Sprintf(answerInstructions, currentDate(), topic, summaries)
}
