package notify

// Default notification templates. Subjects are rendered first and collapsed
// to a single line; bodies are plain text.

const defaultRegistrationSubject = `Your registration at {{.Site.Name}} is being processed`

const defaultRegistrationBody = `Hello {{.Account.Username}},

Thank you for registering at {{.Site.Name}}. Your registration is now
waiting for inspection, and you will receive another email once a decision
has been made. No action is required until then.
{{if .Message}}
{{.Message}}
{{end}}`

const defaultAcceptanceSubject = `Your registration at {{.Site.Name}} has been accepted`

const defaultAcceptanceBody = `Hello {{.Account.Username}},

Your registration at {{.Site.Name}} has been accepted. Please activate
your account within {{.ExpirationDays}} days by visiting the link below:

{{.ActivationURL}}

If the link expires before you use it, contact the site staff to have
your registration accepted again.
{{if .Message}}
{{.Message}}
{{end}}`

const defaultRejectionSubject = `Your registration at {{.Site.Name}} has been declined`

const defaultRejectionBody = `Hello {{.Account.Username}},

We are sorry, but your registration at {{.Site.Name}} has been declined.
{{if .Message}}
{{.Message}}
{{end}}`

const defaultActivationSubject = `Your account at {{.Site.Name}} is now active`

const defaultActivationBody = `Hello {{.Account.Username}},

Your account at {{.Site.Name}} has been activated. You can now sign in
with your username.
{{if .Generated}}
A password was generated for you: {{.Password}}

Please change it after your first sign-in.
{{end}}{{if .Message}}
{{.Message}}
{{end}}`
