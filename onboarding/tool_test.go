package onboarding

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acmeRecord = `{"businessName":"Acme Cuts","firstServices":{"serviceName":"Haircut","durationInMinutes":30,"price":20,"priceCurrency":"USD"},"businessHours":[{"startTime24hr":"09:00","endTime24hr":"17:00","dayOfWeek":"Monday"}],"yourEmailAddress":"a@b.com","doYouWantUsToTakePaymentsDirectlyFromYourCustomers":true}`

func acmeMap(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(acmeRecord), &m))
	return m
}

func wrap(t *testing.T, record any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{RecordArgument: record})
	require.NoError(t, err)
	return raw
}

func TestParseCompletion(t *testing.T) {
	t.Run("Should accept the example payload and round-trip it exactly", func(t *testing.T) {
		rec, err := ParseCompletion(json.RawMessage(`{"record":` + acmeRecord + `}`))
		require.NoError(t, err)
		assert.Equal(t, "Acme Cuts", rec.BusinessName)
		assert.Equal(t, 30, rec.FirstServices.DurationInMinutes)
		assert.Equal(t, Monday, rec.BusinessHours[0].DayOfWeek)
		assert.True(t, rec.TakesPayments)

		out, err := rec.JSON()
		require.NoError(t, err)
		assert.Equal(t, acmeRecord, string(out))
	})

	t.Run("Should accept false for the payment flag", func(t *testing.T) {
		m := acmeMap(t)
		m["doYouWantUsToTakePaymentsDirectlyFromYourCustomers"] = false
		rec, err := ParseCompletion(wrap(t, m))
		require.NoError(t, err)
		assert.False(t, rec.TakesPayments)
	})

	t.Run("Should accept several business hour windows", func(t *testing.T) {
		m := acmeMap(t)
		m["businessHours"] = []any{
			map[string]any{"startTime24hr": "09:00", "endTime24hr": "17:00", "dayOfWeek": "Monday"},
			map[string]any{"startTime24hr": "10:00", "endTime24hr": "14:30", "dayOfWeek": "Saturday"},
		}
		rec, err := ParseCompletion(wrap(t, m))
		require.NoError(t, err)
		assert.Len(t, rec.BusinessHours, 2)
	})

	t.Run("Should reject a payload missing any required field", func(t *testing.T) {
		for _, field := range []string{
			"businessName",
			"firstServices",
			"businessHours",
			"yourEmailAddress",
			"doYouWantUsToTakePaymentsDirectlyFromYourCustomers",
		} {
			m := acmeMap(t)
			delete(m, field)
			_, err := ParseCompletion(wrap(t, m))
			require.Error(t, err, field)
			assert.True(t, IsValidationError(err), field)
		}
	})

	t.Run("Should reject a nested missing field", func(t *testing.T) {
		m := acmeMap(t)
		delete(m["firstServices"].(map[string]any), "priceCurrency")
		_, err := ParseCompletion(wrap(t, m))
		assert.True(t, IsValidationError(err))

		m = acmeMap(t)
		delete(m["businessHours"].([]any)[0].(map[string]any), "endTime24hr")
		_, err = ParseCompletion(wrap(t, m))
		assert.True(t, IsValidationError(err))
	})

	t.Run("Should reject extra fields at any level", func(t *testing.T) {
		m := acmeMap(t)
		m["phone"] = "555-0100"
		_, err := ParseCompletion(wrap(t, m))
		assert.True(t, IsValidationError(err))

		m = acmeMap(t)
		m["firstServices"].(map[string]any)["discount"] = 5
		_, err = ParseCompletion(wrap(t, m))
		assert.True(t, IsValidationError(err))

		m = acmeMap(t)
		m["businessHours"].([]any)[0].(map[string]any)["timezone"] = "UTC"
		_, err = ParseCompletion(wrap(t, m))
		assert.True(t, IsValidationError(err))

		_, err = ParseCompletion(json.RawMessage(`{"record":` + acmeRecord + `,"confirmed":true}`))
		assert.True(t, IsValidationError(err))
	})

	t.Run("Should reject a dayOfWeek outside the canonical names", func(t *testing.T) {
		for _, day := range []string{"monday", "Mon", "Funday", ""} {
			m := acmeMap(t)
			m["businessHours"].([]any)[0].(map[string]any)["dayOfWeek"] = day
			_, err := ParseCompletion(wrap(t, m))
			assert.True(t, IsValidationError(err), day)
		}
	})

	t.Run("Should reject wrongly typed values", func(t *testing.T) {
		m := acmeMap(t)
		m["firstServices"].(map[string]any)["price"] = "20"
		_, err := ParseCompletion(wrap(t, m))
		assert.True(t, IsValidationError(err))

		m = acmeMap(t)
		m["firstServices"].(map[string]any)["durationInMinutes"] = 30.5
		_, err = ParseCompletion(wrap(t, m))
		assert.True(t, IsValidationError(err))

		m = acmeMap(t)
		m["doYouWantUsToTakePaymentsDirectlyFromYourCustomers"] = "yes"
		_, err = ParseCompletion(wrap(t, m))
		assert.True(t, IsValidationError(err))
	})

	t.Run("Should reject values that break the record rules", func(t *testing.T) {
		cases := map[string]func(m map[string]any){
			"email": func(m map[string]any) { m["yourEmailAddress"] = "not-an-email" },
			"time": func(m map[string]any) {
				m["businessHours"].([]any)[0].(map[string]any)["startTime24hr"] = "9am"
			},
			"duration": func(m map[string]any) {
				m["firstServices"].(map[string]any)["durationInMinutes"] = 0
			},
			"price":    func(m map[string]any) { m["firstServices"].(map[string]any)["price"] = -1 },
			"no hours": func(m map[string]any) { m["businessHours"] = []any{} },
		}
		for name, mutate := range cases {
			m := acmeMap(t)
			mutate(m)
			_, err := ParseCompletion(wrap(t, m))
			assert.True(t, IsValidationError(err), name)
		}
	})

	t.Run("Should reject empty and malformed arguments", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "{", `{}`, `{"record":null}`, `[]`} {
			_, err := ParseCompletion(json.RawMessage(raw))
			assert.True(t, IsValidationError(err), raw)
		}
	})

	t.Run("Should list the problems in the error message", func(t *testing.T) {
		m := acmeMap(t)
		delete(m, "businessName")
		_, err := ParseCompletion(wrap(t, m))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.NotEmpty(t, verr.Problems)
		assert.Contains(t, err.Error(), "invalid onboarding record")
	})

	t.Run("Should locate schema problems by their full path", func(t *testing.T) {
		m := acmeMap(t)
		hours := m["businessHours"].([]any)[0].(map[string]any)
		hours["startTime24hr"] = "9am"
		hours["dayOfWeek"] = "Funday"
		m["firstServices"].(map[string]any)["currency"] = "USD"

		_, err := ParseCompletion(wrap(t, m))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)

		hasPrefix := func(prefix string) bool {
			for _, p := range verr.Problems {
				if strings.HasPrefix(p, prefix) {
					return true
				}
			}
			return false
		}
		assert.True(t, hasPrefix("record.businessHours.0.startTime24hr: "), verr.Problems)
		assert.True(t, hasPrefix("record.businessHours.0.dayOfWeek: "), verr.Problems)
		assert.True(t, hasPrefix("record.firstServices: "), verr.Problems)
		for _, p := range verr.Problems {
			assert.False(t, strings.HasPrefix(p, "startTime24hr:"), p)
			assert.False(t, strings.HasPrefix(p, "0:"), p)
		}
	})
}

func TestCompleteTool(t *testing.T) {
	t.Run("Should wrap the record schema as the only argument", func(t *testing.T) {
		tool := CompleteTool()
		assert.Equal(t, "mark_onboarding_complete", tool.Name)
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.Parameters["type"])
		assert.Equal(t, false, tool.Parameters["additionalProperties"])
		assert.Equal(t, []any{"record"}, tool.Parameters["required"])

		props := tool.Parameters["properties"].(map[string]any)
		require.Len(t, props, 1)
		assert.Contains(t, props, "record")
	})
}

func TestSchema(t *testing.T) {
	schema := Schema()

	t.Run("Should require every field and forbid others", func(t *testing.T) {
		assert.NotContains(t, schema, "$schema")
		assert.NotContains(t, schema, "$id")
		assert.Equal(t, false, schema["additionalProperties"])
		assert.ElementsMatch(t, []any{
			"businessName",
			"firstServices",
			"businessHours",
			"yourEmailAddress",
			"doYouWantUsToTakePaymentsDirectlyFromYourCustomers",
		}, schema["required"])
	})

	t.Run("Should describe nested objects inline", func(t *testing.T) {
		props := schema["properties"].(map[string]any)

		services := props["firstServices"].(map[string]any)
		assert.Equal(t, "object", services["type"])
		assert.Equal(t, false, services["additionalProperties"])
		assert.Len(t, services["required"], 4)

		hours := props["businessHours"].(map[string]any)
		assert.Equal(t, "array", hours["type"])
		items := hours["items"].(map[string]any)
		assert.Equal(t, false, items["additionalProperties"])
		day := items["properties"].(map[string]any)["dayOfWeek"].(map[string]any)
		assert.Len(t, day["enum"], 7)

		email := props["yourEmailAddress"].(map[string]any)
		assert.Equal(t, "email", email["format"])
	})

	t.Run("Should return an independent copy", func(t *testing.T) {
		first := Schema()
		first["type"] = "mutated"
		assert.Equal(t, "object", Schema()["type"])
	})
}

func TestSystemInstruction(t *testing.T) {
	t.Run("Should name the tool and every day", func(t *testing.T) {
		text := SystemInstruction()
		assert.Contains(t, text, ToolName)
		for _, d := range Days {
			assert.Contains(t, text, string(d))
		}
	})
}

func TestRecordSummary(t *testing.T) {
	rec, err := ParseCompletion(json.RawMessage(`{"record":` + acmeRecord + `}`))
	require.NoError(t, err)
	assert.Equal(t, "Acme Cuts offers Haircut (30 min, 20.00 USD). Monday 09:00-17:00.", rec.Summary())
}
