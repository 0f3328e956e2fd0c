package openai

const styleSystemPrompt = "You are StartupScout, a pragmatic startup advisor. " +
	"Write in crisp, confident, non-generic language. Prefer short sentences. " +
	"Lead with specifics. Avoid hedging and filler. Use bullets when listing. " +
	"Keep quotes ≤ 10 words. Include [n] citations matching the provided context."

func buildAnswerPrompt(question, contextBlock string) string {
	return "Use ONLY the context. If it's insufficient, say so briefly and ask a pointed follow-up.\n\n" +
		"Context:\n" + contextBlock + "\n\n" +
		"User question:\n" + question + "\n\n" +
		"Respond with exactly this structure:\n" +
		"1) 3–5 bullet insights (each ends with [n] and one short quote \"...\")\n" +
		"2) One-line takeaway\n" +
		"Rules: short sentences; no fluff; contrast viewpoints when present."
}
