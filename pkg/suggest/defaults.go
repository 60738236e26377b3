package suggest

// DefaultSuggestions is the fixed fallback set used whenever no pushed,
// cached, or generated set is available. It must never be empty; the manager
// degrades to it instead of surfacing an error.
func DefaultSuggestions() SuggestionSet {
	return SuggestionSet{
		{
			Short: "Summarize findings",
			Full:  "Can you summarize the key findings from this analysis so far in a short list, highlighting the most important takeaways I should act on first?",
		},
		{
			Short: "Explain methodology",
			Full:  "Please explain the methodology you used for this analysis step by step, so I can understand how you arrived at these conclusions and verify them myself.",
		},
		{
			Short: "Top priorities",
			Full:  "Based on everything you have found so far, what are the top three priorities I should focus on next, and why do they matter most right now?",
		},
		{
			Short: "Biggest risks",
			Full:  "What are the biggest risks or weaknesses you identified in this analysis, and what concrete steps would you recommend to mitigate each one of them?",
		},
		{
			Short: "Quick wins",
			Full:  "Are there any quick wins in these results that I could implement this week with minimal effort but a meaningful impact on the overall outcome?",
		},
		{
			Short: "Compare competitors",
			Full:  "How do these results compare against the main competitors you looked at, and where exactly are we falling behind or pulling ahead of them today?",
		},
		{
			Short: "Dig into trends",
			Full:  "Can you dig deeper into the historical trends you mentioned and explain what likely caused the most significant changes over the last twelve months of data?",
		},
		{
			Short: "Next steps",
			Full:  "What would you recommend as the concrete next steps after this analysis, ordered by expected impact, and roughly how long should each one take to complete?",
		},
		{
			Short: "Show the data",
			Full:  "Could you show me the underlying data behind these conclusions in a table, so I can review the raw numbers and share them with my team?",
		},
		{
			Short: "Clarify a finding",
			Full:  "One of your findings was not entirely clear to me; can you restate the most surprising result in simpler terms and explain why it happened?",
		},
		{
			Short: "Expand the scope",
			Full:  "Would it be useful to expand the scope of this analysis to include additional markets or segments, and if so, which ones would you suggest first?",
		},
		{
			Short: "Measure success",
			Full:  "Which metrics should I track over the coming months to measure whether the recommendations from this analysis are actually working, and how often should I check them?",
		},
		{
			Short: "Alternative approaches",
			Full:  "Are there alternative approaches or strategies you considered but did not recommend, and can you briefly explain the trade-offs that led you to rule them out?",
		},
		{
			Short: "Cost and effort",
			Full:  "Can you estimate the cost and effort involved in implementing each of your main recommendations, so I can plan resources and set realistic expectations with stakeholders?",
		},
		{
			Short: "Run it again",
			Full:  "How often should I rerun this kind of analysis to keep the results current, and which parts of it change quickly enough to warrant closer monitoring?",
		},
		{
			Short: "Draft a report",
			Full:  "Please draft a short executive summary of this conversation that I could send to my team, covering the goals, the findings, and the recommended actions.",
		},
		{
			Short: "Check assumptions",
			Full:  "What assumptions did you make during this analysis, and which of them should I validate with my own data before acting on your recommendations here?",
		},
		{
			Short: "Worst case",
			Full:  "If we do nothing and keep everything exactly as it is today, what is the realistic worst case outcome over the next six to twelve months?",
		},
		{
			Short: "Explain a tool result",
			Full:  "Can you walk me through the most important tool result from this run and explain what the numbers mean in practical terms for my situation?",
		},
		{
			Short: "Start a deeper dive",
			Full:  "Please start a deeper investigation into the single most concerning issue you found, and tell me what additional information you would need from me to proceed.",
		},
	}
}
