package provider

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/numeri/numeri/proxy/pkg/models"
)

// datasetContext serializes the current dataset for prompt embedding.
func datasetContext(rows []models.Row) string {
	if rows == nil {
		rows = []models.Row{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}

// logicPrompt states the strict data-processing role, the non-negotiable
// dataset rules, and three worked examples, then asks for the full updated
// dataset in the fixed response schema. The examples double as few-shot
// anchors for the append-only and ID-protection rules the guardrail enforces
// programmatically afterwards.
func logicPrompt(req *models.EditRequest) string {
	return fmt.Sprintf(`You are a strict data processing assistant. You receive a JSON dataset and a user command. You must return the updated JSON dataset.

### CRITICAL RULES (NON-NEGOTIABLE):
1. **ID PROTECTION**: NEVER change the value of an 'id' field. If the user asks to change an ID, IGNORE that specific part of the request.
2. **APPEND ONLY**: If adding new data, ALWAYS add it to the end of the array. NEVER insert in the middle.
3. **PRECISION**: If the user targets a specific row (e.g., "row 1"), ONLY modify that row. Do NOT touch other rows.
4. **NO DELETION**: Do not delete rows unless explicitly asked.

### EXAMPLES:

**Case 1: Specific Row Update**
User: "Ubah deskripsi baris 1 jadi KAPITAL"
Data: [{"id": 1, "desc": "abc"}, {"id": 2, "desc": "def"}]
Result:
{
  "content": [{"id": 1, "desc": "ABC"}, {"id": 2, "desc": "def"}],
  "explanation": "Mengubah deskripsi baris 1 menjadi kapital."
}

**Case 2: ID Modification Attempt (Forbidden)**
User: "Ubah ID baris 1 jadi 999"
Data: [{"id": 10, "val": "x"}]
Result:
{
  "content": [{"id": 10, "val": "x"}],
  "explanation": "Permintaan mengubah ID ditolak karena ID bersifat unik dan tetap."
}

**Case 3: Insertion (Must Append)**
User: "Sisipkan data baru di antara baris 1 dan 2"
Data: [{"id": 1}, {"id": 2}]
Result:
{
  "content": [{"id": 1}, {"id": 2}, {"id": 3, "new": "data"}],
  "explanation": "Data baru ditambahkan di akhir tabel untuk menjaga integritas urutan."
}

Current JSON Dataset:
%s

User Command: %s

Return ONLY valid JSON with "content" (array) and "explanation" (string).`,
		datasetContext(req.CurrentData), req.Prompt)
}

// visionPrompt builds the single-call multimodal prompt: dataset context,
// instruction, and the base64 image inline.
func visionPrompt(req *models.EditRequest) string {
	return fmt.Sprintf(`You are a receipt/invoice data extraction expert. Extract information from the image and add it to the dataset. The extracted transaction must include date, amount, description/merchant, and category, and must be APPENDED to the end of the dataset.

Current JSON Dataset:
%s

User Command: %s

IMPORTANT: Return ONLY valid JSON with this exact structure:
{
  "filename": "transactions_updated.json",
  "content": [array of ALL rows including the new one],
  "explanation": "Description in Bahasa Indonesia"
}

Image: %s`, datasetContext(req.CurrentData), req.Prompt, req.Image)
}

// ocrPrompt is the first stage of the two-stage vision pipeline: plain text
// extraction, no structuring.
func ocrPrompt(req *models.EditRequest) string {
	return fmt.Sprintf(`You are an OCR engine. Transcribe every piece of text visible in the image below, preserving amounts, dates, and merchant names exactly. Return plain text only, no commentary.

Image: %s`, req.Image)
}

// structurePrompt is the second stage: turn the OCR transcript into one
// appended transaction row.
func structurePrompt(req *models.EditRequest, transcript string) string {
	return fmt.Sprintf(`You are a receipt/invoice data extraction expert. Below is the OCR transcript of a receipt. Build ONE transaction object (date, amount, description/merchant, category) from it and append it to the dataset.

Current JSON Dataset:
%s

OCR Transcript:
%s

User Command: %s

IMPORTANT: Return ONLY valid JSON with this exact structure:
{
  "filename": "transactions_updated.json",
  "content": [array of ALL rows including the new one],
  "explanation": "Description in Bahasa Indonesia"
}`, datasetContext(req.CurrentData), transcript, req.Prompt)
}

// crossAgentPrompt forwards the instruction with whatever dataset context
// the request carried, for free-form or multi-dataset questions.
func crossAgentPrompt(req *models.EditRequest) string {
	var b strings.Builder
	b.WriteString(req.Prompt)

	if len(req.Datasets) > 0 {
		names := make([]string, 0, len(req.Datasets))
		for name := range req.Datasets {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("\n\nAvailable datasets:")
		for _, name := range names {
			b.WriteString("\n\n### ")
			b.WriteString(name)
			b.WriteString("\n")
			b.Write(req.Datasets[name])
		}
	} else if req.CurrentData != nil {
		b.WriteString("\n\nCurrent JSON Dataset:\n")
		b.WriteString(datasetContext(req.CurrentData))
	}

	return b.String()
}
