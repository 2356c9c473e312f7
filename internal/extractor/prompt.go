package extractor

// buildPrompt is the structured-extraction instruction sent with every card image
func buildPrompt() string {
	return `Extract business card details from this image. Return ONLY a valid JSON object with the following fields:
- name (string): Full name of the person
- jobTitle (string): Job title or position
- company (string): Company name
- email (string): Email address
- phone (string): Phone number
- website (string): Website URL
- address (string): Physical address
- fullText (string): All text found on the card

If a field is not found, use an empty string. Do not include markdown formatting (like ` + "```json" + `) in the response.`
}
