package extract

import "fmt"

// SystemPrompt frames every structured-extraction request.
const SystemPrompt = "You are a helpful assistant that extracts purchase information from text."

// formatInstructions describes the target schema, including the default
// every required field must fall back to. The parser on our side applies
// the same defaults, so a model that ignores the instructions still
// produces a well-formed result.
const formatInstructions = `Respond with a single JSON object matching this schema:
{
  "store_name": string,      // name of the store or establishment (default: "Unknown Store")
  "amount": number,          // total amount of the purchase, numeric value only (default: 0.0)
  "currency": string,        // currency symbol or code, e.g. R$, $, EUR (default: "R$")
  "date": string,            // date of the purchase in YYYY-MM-DD format (default: "Unknown Date")
  "payment_method": string,  // credit card, debit card, cash, PIX, ... (default: "Unknown")
  "category": string,        // groceries, utilities, entertainment, ... (default: "Uncategorized")
  "items": [                 // optional: purchased line items, [] when not listed
    {"name": string, "quantity": number, "price": number}
  ],
  "tax": number,             // optional, 0.0 when absent
  "discount": number         // optional, 0.0 when absent
}
Output only the JSON object, with no surrounding prose or code fences.`

// promptTemplate is the user-message template for purchase extraction.
const promptTemplate = `You are a specialized assistant that extracts purchase information from receipts, invoices, and financial documents.
Your task is to carefully analyze the text and extract all relevant purchase information.

IMPORTANT: You must provide values for all required fields. If a field is not found in the text:
- For store_name, look for business names, store names, or merchant names
- For amount, look for total amounts, final values, or payment amounts
- For currency, look for currency symbols (R$, $, EUR) or currency codes
- For date, look for dates in any format and convert to YYYY-MM-DD
- For payment_method, look for payment type indicators (credit, debit, cash, PIX)
- For category, try to infer the category based on the text context
- For optional fields, use empty list [] or 0.0 as appropriate

%s

Text to analyze:
%s

Remember:
1. NEVER return null values for required fields
2. For amounts:
   - Look for values with currency symbols (R$, $, EUR)
   - Extract only the numeric value
   - Look for "Total", "Valor Total", "Amount", "Final Value"
3. For dates:
   - Look for dates in any format (DD/MM/YYYY, MM/DD/YYYY, etc.)
   - Convert to YYYY-MM-DD format
   - Look for "Data", "Date", "Emissao", "Issue Date"
4. For store names:
   - Look for business names at the top of receipts
   - Look for merchant names
   - Look for establishment names
5. For payment methods:
   - Look for "Cartao de Credito", "Cartao de Debito", "Credit Card", "Debit Card"
   - Look for "PIX", "Dinheiro", "Cash"
6. If you can't find a value, use the default values specified above
7. Be thorough in your analysis - receipts often have information in different formats

JSON Output:
`

// BuildPrompt renders the user message for a given input text.
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, formatInstructions, text)
}
