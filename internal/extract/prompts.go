package extract

const birthCertificatePrompt = `SYSTEM ROLE: Strict Philippine Document Verifier.
TASK: Analyze this image. It MUST be a "Certificate of Live Birth" (PSA/NSO/LCR).

STRICT VALIDATION RULES:
1. Look for the text "Certificate of Live Birth" OR "Republic of the Philippines" AND "Office of the Civil Registrar General".
2. If the image is a selfie, a landscape, an ID, a receipt, or NOT a birth certificate, mark "is_valid_document": false.

OUTPUT FORMAT (JSON ONLY):
{
    "is_valid_document": boolean,
    "rejection_reason": "string or null",
    "Name": "string",
    "Sex": "string",
    "Birthdate": "YYYY-MM-DD",
    "PlaceOfBirth": "string",
    "BirthOrder": "string",
    "Religion": "string",
    "Mother_MaidenName": "string",
    "Mother_Citizenship": "string",
    "Mother_Occupation": "string",
    "Father_Name": "string",
    "Father_Citizenship": "string",
    "Father_Occupation": "string"
}`

const form137Prompt = `SYSTEM ROLE: Philippine School Document Analyzer.
TASK: Analyze this image. It should be a Form 137, SF10, or Permanent Record.

EXTRACT THE FOLLOWING STRICTLY IN JSON format:
{
    "lrn": "Learner Reference Number",
    "school_name": "Name of School",
    "school_address": "Address of School",
    "final_general_average": "The final GWA or General Average found"
}
Return ONLY the JSON. Do not add markdown backticks.`
