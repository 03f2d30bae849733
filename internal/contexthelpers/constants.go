package contexthelpers

type contextKey string

const profileIDContextKey = contextKey("profileID")
const csrfTokenContextKey = contextKey("csrfToken")
