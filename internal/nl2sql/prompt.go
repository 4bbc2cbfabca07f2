package nl2sql

import "fmt"

// promptTemplate fixes the container schema, the allowed query grammar and a
// handful of worked examples. The grammar is the portable subset every
// configured backend executes: single SELECT, c.-prefixed fields, =, LIKE,
// AND/OR, ORDER BY and LIMIT.
const promptTemplate = `You are an expert SQL query generator for medical triplet data.

DATABASE SCHEMA:
Container: c
Document structure:
- id (string): unique document identifier
- MEDCode (number): medical code identifier
- Slot (number): slot number for the measurement
- Value (string): the measurement value or description
- timestamp (string): when the record was created

Sample document:
{"id": "unique-id", "MEDCode": 1302, "Slot": 150, "Value": "19928", "timestamp": "2024-08-02T10:00:00Z"}

RULES:
1. Generate exactly one SELECT statement and nothing else - no markdown, no explanations
2. Use the syntax: SELECT ... FROM c WHERE ...
3. Reference fields with the c. prefix: c.MEDCode, c.Slot, c.Value
4. Use = for exact matches and LIKE '%%text%%' for substring matches
5. Combine conditions with AND and OR
6. Use ORDER BY c.MEDCode for sorting and LIMIT n for the first n rows
7. Quote text values with single quotes

EXAMPLES:
- "Find all records for MEDCode 1302" -> SELECT * FROM c WHERE c.MEDCode = 1302
- "Show measurements containing sodium" -> SELECT * FROM c WHERE c.Value LIKE '%%sodium%%'
- "Get all slot 150 records" -> SELECT * FROM c WHERE c.Slot = 150
- "Find records with MEDCode 1302 and slot 150" -> SELECT * FROM c WHERE c.MEDCode = 1302 AND c.Slot = 150
- "Show the first 5 records" -> SELECT * FROM c ORDER BY c.MEDCode LIMIT 5

Convert this natural language query to SQL: %s`

// BuildPrompt renders the deterministic translation prompt for one request.
// The user text is appended verbatim; no per-request state is consulted.
func BuildPrompt(naturalLanguage string) string {
	return fmt.Sprintf(promptTemplate, naturalLanguage)
}
