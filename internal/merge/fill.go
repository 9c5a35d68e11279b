package merge

import (
	"fmt"
	"strings"

	"github.com/unitecrm/unite/internal/crm"
)

// fillPerson reconciles keeper and loser field values. Keeper values win;
// empty keeper fields adopt the loser's value. The loser's primary email and
// phone, plus its alternate lists, fold into the keeper's alternate lists
// with case-insensitive dedup. Mention counts are summed.
func fillPerson(keeper, loser crm.Person) crm.Person {
	merged := keeper
	merged.Email = fill(keeper.Email, loser.Email)
	merged.Phone = fill(keeper.Phone, loser.Phone)
	merged.JobTitle = fill(keeper.JobTitle, loser.JobTitle)
	merged.City = fill(keeper.City, loser.City)
	merged.CompanyID = fill(keeper.CompanyID, loser.CompanyID)
	merged.AvatarURL = fill(keeper.AvatarURL, loser.AvatarURL)
	merged.LinkedinURL = fill(keeper.LinkedinURL, loser.LinkedinURL)

	emailCandidates := append([]string{loser.Email}, loser.AdditionalEmails...)
	merged.AdditionalEmails = mergeAlternates(merged.Email, keeper.AdditionalEmails, emailCandidates)
	phoneCandidates := append([]string{loser.Phone}, loser.AdditionalPhones...)
	merged.AdditionalPhones = mergeAlternates(merged.Phone, keeper.AdditionalPhones, phoneCandidates)

	merged.MentionCount = keeper.MentionCount + loser.MentionCount
	return merged
}

// fillCompany is the company analogue of fillPerson. There are no alternate
// lists; the ideal-customer flag sticks once either side has set it.
func fillCompany(keeper, loser crm.Company) crm.Company {
	merged := keeper
	merged.Domain = fill(keeper.Domain, loser.Domain)
	merged.City = fill(keeper.City, loser.City)
	merged.State = fill(keeper.State, loser.State)
	merged.Country = fill(keeper.Country, loser.Country)
	merged.LinkedinURL = fill(keeper.LinkedinURL, loser.LinkedinURL)
	if merged.EmployeeCount == 0 {
		merged.EmployeeCount = loser.EmployeeCount
	}
	merged.IsICP = keeper.IsICP || loser.IsICP
	merged.MentionCount = keeper.MentionCount + loser.MentionCount
	return merged
}

// applyOverrides sets keeper fields named by the caller before
// reconciliation. Unknown keys fail the merge up front.
func applyOverrides(keeper crm.Company, overrides map[string]string) (crm.Company, error) {
	for key, value := range overrides {
		switch key {
		case "name":
			keeper.Name = value
		case "domain":
			keeper.Domain = value
		case "city":
			keeper.City = value
		case "state":
			keeper.State = value
		case "country":
			keeper.Country = value
		case "linkedin_url":
			keeper.LinkedinURL = value
		default:
			return crm.Company{}, fmt.Errorf("unknown override field %q", key)
		}
	}
	return keeper, nil
}

// mergeAlternates appends candidates to existing, skipping empties, the
// primary value, and anything already present. Comparison is
// case-insensitive; original casing of kept values is preserved.
func mergeAlternates(primary string, existing []string, candidates []string) []string {
	seen := map[string]bool{}
	if primary != "" {
		seen[strings.ToLower(primary)] = true
	}
	out := make([]string, 0, len(existing)+len(candidates))
	for _, v := range existing {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	for _, v := range candidates {
		trimmed := strings.TrimSpace(v)
		key := strings.ToLower(trimmed)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}
	return out
}

func fill(existing, incoming string) string {
	if strings.TrimSpace(existing) != "" {
		return existing
	}
	return incoming
}
