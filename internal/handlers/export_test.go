package handlers

// MaxSaveBody exposes maxSaveBody to the external handlers_test package.
const MaxSaveBody = maxSaveBody
