package plan

// Section names a top-level key of the account plan.
type Section string

const (
	SectionCompanyName          Section = "company_name"
	SectionSnapshot             Section = "snapshot"
	SectionMarketOpportunity    Section = "market_opportunity"
	SectionIdealCustomerProfile Section = "ideal_customer_profile"
	SectionKeyStakeholders      Section = "key_stakeholders"
	SectionTechStack            Section = "tech_stack"
	SectionCompetitive          Section = "competitive_landscape"
	SectionRisks                Section = "risks_and_assumptions"
	SectionNextSteps            Section = "recommended_next_steps"
	SectionSources              Section = "sources"
	SectionConfidence           Section = "confidence"
	SectionConflicts            Section = "conflicts"
)

var knownSections = map[Section]struct{}{
	SectionCompanyName: {}, SectionSnapshot: {}, SectionMarketOpportunity: {},
	SectionIdealCustomerProfile: {}, SectionKeyStakeholders: {}, SectionTechStack: {},
	SectionCompetitive: {}, SectionRisks: {}, SectionNextSteps: {}, SectionSources: {},
	SectionConfidence: {}, SectionConflicts: {},
}

// Known reports whether s is part of the schema.
func (s Section) Known() bool {
	_, ok := knownSections[s]
	return ok
}

// listFields are nested fields whose schema type is a list of strings.
var listFields = map[string]struct{}{
	"snapshot.primary_products":        {},
	"market_opportunity.growth_drivers": {},
}

// Schema is the structure the model is asked to follow.
const Schema = `
Return ONLY a JSON object with this structure:

{
  "company_name": string,
  "snapshot": {
    "description": string,
    "headquarters": string,
    "founded": string,
    "revenue_estimate": string,
    "employees_estimate": string,
    "primary_products": [string]
  },
  "market_opportunity": {
    "segment": string,
    "tams_sams_soms": string,
    "growth_drivers": [string]
  },
  "ideal_customer_profile": {
    "industry": string,
    "company_size": string,
    "revenues": string,
    "geography": string
  },
  "key_stakeholders": [
    {"role": string, "name": string | null, "linkedin": string | null}
  ],
  "tech_stack": [string],
  "competitive_landscape": [
    {"competitor": string, "notes": string, "sources": [string]}
  ],
  "risks_and_assumptions": [string],
  "recommended_next_steps": [string],
  "sources": [
    {"url": string, "title": string, "date": string}
  ],
  "confidence": "low | medium | high"
}
`
