package onboarding

import (
	"fmt"
	"strings"
)

// SeedMessage opens the conversation on the model's side before the user has
// typed anything.
const SeedMessage = "Start the onboarding. Greet me and ask for the first piece of information."

// SystemInstruction is prepended to every model call. It is never stored in
// the transcript.
func SystemInstruction() string {
	days := make([]string, len(Days))
	for i, d := range Days {
		days[i] = string(d)
	}
	return fmt.Sprintf(`You are a friendly onboarding assistant for a booking platform.
Collect the following information from the business owner, one or two questions at a time:

- businessName: the name of the business
- firstServices: the first service offered, with serviceName, durationInMinutes (integer),
  price (number) and priceCurrency (ISO 4217 code such as USD)
- businessHours: one or more weekly opening windows, each with dayOfWeek (one of %s),
  startTime24hr and endTime24hr in HH:MM 24 hour format
- yourEmailAddress: the owner's contact email
- doYouWantUsToTakePaymentsDirectlyFromYourCustomers: yes or no

Do not invent values. When something is unclear, ask again.
Once every field is known, read the details back and, after the user confirms,
call the %s tool exactly once with the complete record as the %q argument.
If the tool reports problems, ask the user for the missing or invalid details.`,
		strings.Join(days, ", "), ToolName, RecordArgument)
}
