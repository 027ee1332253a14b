// Package plan models the account plan document produced by the language
// model. Schema keys are typed; anything else, including schema keys whose
// value has the wrong shape, is kept verbatim in Extra so no reply content is
// lost. Encoding is deterministic.
package plan

import (
	"encoding/json"
)

// AccountPlan is the structured research document for one company.
type AccountPlan struct {
	CompanyName          *string
	Snapshot             *Snapshot
	MarketOpportunity    *MarketOpportunity
	IdealCustomerProfile *CustomerProfile
	KeyStakeholders      []Stakeholder
	TechStack            []string
	CompetitiveLandscape []Competitor
	RisksAndAssumptions  []string
	RecommendedNextSteps []string
	Sources              []Citation
	Confidence           *string
	// Conflicts is whatever the model reported under "conflicts".
	Conflicts json.RawMessage
	Extra     map[string]json.RawMessage
}

func (p *AccountPlan) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	*p = AccountPlan{
		CompanyName:          takePtr[string](o, "company_name"),
		Snapshot:             takePtr[Snapshot](o, "snapshot"),
		MarketOpportunity:    takePtr[MarketOpportunity](o, "market_opportunity"),
		IdealCustomerProfile: takePtr[CustomerProfile](o, "ideal_customer_profile"),
		KeyStakeholders:      takeList[Stakeholder](o, "key_stakeholders"),
		TechStack:            takeList[string](o, "tech_stack"),
		CompetitiveLandscape: takeList[Competitor](o, "competitive_landscape"),
		RisksAndAssumptions:  takeList[string](o, "risks_and_assumptions"),
		RecommendedNextSteps: takeList[string](o, "recommended_next_steps"),
		Sources:              takeList[Citation](o, "sources"),
		Confidence:           takePtr[string](o, "confidence"),
		Conflicts:            takeRaw(o, "conflicts"),
	}
	p.Extra = extraOrNil(o)
	return nil
}

func (p AccountPlan) MarshalJSON() ([]byte, error) {
	b := newBuilder()
	setPtr(b, "company_name", p.CompanyName)
	setPtr(b, "snapshot", p.Snapshot)
	setPtr(b, "market_opportunity", p.MarketOpportunity)
	setPtr(b, "ideal_customer_profile", p.IdealCustomerProfile)
	setList(b, "key_stakeholders", p.KeyStakeholders)
	setList(b, "tech_stack", p.TechStack)
	setList(b, "competitive_landscape", p.CompetitiveLandscape)
	setList(b, "risks_and_assumptions", p.RisksAndAssumptions)
	setList(b, "recommended_next_steps", p.RecommendedNextSteps)
	setList(b, "sources", p.Sources)
	setPtr(b, "confidence", p.Confidence)
	b.setRaw("conflicts", p.Conflicts)
	return b.finish(p.Extra)
}

// Snapshot is the company overview section.
type Snapshot struct {
	Description       *string
	Headquarters      *string
	Founded           *string
	RevenueEstimate   *string
	EmployeesEstimate *string
	PrimaryProducts   []string
	Extra             map[string]json.RawMessage
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	*s = Snapshot{
		Description:       takePtr[string](o, "description"),
		Headquarters:      takePtr[string](o, "headquarters"),
		Founded:           takePtr[string](o, "founded"),
		RevenueEstimate:   takePtr[string](o, "revenue_estimate"),
		EmployeesEstimate: takePtr[string](o, "employees_estimate"),
		PrimaryProducts:   takeList[string](o, "primary_products"),
	}
	s.Extra = extraOrNil(o)
	return nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	b := newBuilder()
	setPtr(b, "description", s.Description)
	setPtr(b, "headquarters", s.Headquarters)
	setPtr(b, "founded", s.Founded)
	setPtr(b, "revenue_estimate", s.RevenueEstimate)
	setPtr(b, "employees_estimate", s.EmployeesEstimate)
	setList(b, "primary_products", s.PrimaryProducts)
	return b.finish(s.Extra)
}

type MarketOpportunity struct {
	Segment       *string
	TamsSamsSoms  *string
	GrowthDrivers []string
	Extra         map[string]json.RawMessage
}

func (m *MarketOpportunity) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	*m = MarketOpportunity{
		Segment:       takePtr[string](o, "segment"),
		TamsSamsSoms:  takePtr[string](o, "tams_sams_soms"),
		GrowthDrivers: takeList[string](o, "growth_drivers"),
	}
	m.Extra = extraOrNil(o)
	return nil
}

func (m MarketOpportunity) MarshalJSON() ([]byte, error) {
	b := newBuilder()
	setPtr(b, "segment", m.Segment)
	setPtr(b, "tams_sams_soms", m.TamsSamsSoms)
	setList(b, "growth_drivers", m.GrowthDrivers)
	return b.finish(m.Extra)
}

// CustomerProfile is the ideal customer profile section.
type CustomerProfile struct {
	Industry    *string
	CompanySize *string
	Revenues    *string
	Geography   *string
	Extra       map[string]json.RawMessage
}

func (c *CustomerProfile) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	*c = CustomerProfile{
		Industry:    takePtr[string](o, "industry"),
		CompanySize: takePtr[string](o, "company_size"),
		Revenues:    takePtr[string](o, "revenues"),
		Geography:   takePtr[string](o, "geography"),
	}
	c.Extra = extraOrNil(o)
	return nil
}

func (c CustomerProfile) MarshalJSON() ([]byte, error) {
	b := newBuilder()
	setPtr(b, "industry", c.Industry)
	setPtr(b, "company_size", c.CompanySize)
	setPtr(b, "revenues", c.Revenues)
	setPtr(b, "geography", c.Geography)
	return b.finish(c.Extra)
}

type Stakeholder struct {
	Role     *string
	Name     *string
	LinkedIn *string
	Extra    map[string]json.RawMessage
}

func (s *Stakeholder) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	*s = Stakeholder{
		Role:     takePtr[string](o, "role"),
		Name:     takePtr[string](o, "name"),
		LinkedIn: takePtr[string](o, "linkedin"),
	}
	s.Extra = extraOrNil(o)
	return nil
}

func (s Stakeholder) MarshalJSON() ([]byte, error) {
	b := newBuilder()
	setPtr(b, "role", s.Role)
	setPtr(b, "name", s.Name)
	setPtr(b, "linkedin", s.LinkedIn)
	return b.finish(s.Extra)
}

type Competitor struct {
	Competitor *string
	Notes      *string
	Sources    []string
	Extra      map[string]json.RawMessage
}

func (c *Competitor) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	*c = Competitor{
		Competitor: takePtr[string](o, "competitor"),
		Notes:      takePtr[string](o, "notes"),
		Sources:    takeList[string](o, "sources"),
	}
	c.Extra = extraOrNil(o)
	return nil
}

func (c Competitor) MarshalJSON() ([]byte, error) {
	b := newBuilder()
	setPtr(b, "competitor", c.Competitor)
	setPtr(b, "notes", c.Notes)
	setList(b, "sources", c.Sources)
	return b.finish(c.Extra)
}

// Citation is an entry of the plan's sources list.
type Citation struct {
	URL   *string
	Title *string
	Date  *string
	Extra map[string]json.RawMessage
}

func (c *Citation) UnmarshalJSON(data []byte) error {
	o, err := decodeObject(data)
	if err != nil {
		return err
	}
	*c = Citation{
		URL:   takePtr[string](o, "url"),
		Title: takePtr[string](o, "title"),
		Date:  takePtr[string](o, "date"),
	}
	c.Extra = extraOrNil(o)
	return nil
}

func (c Citation) MarshalJSON() ([]byte, error) {
	b := newBuilder()
	setPtr(b, "url", c.URL)
	setPtr(b, "title", c.Title)
	setPtr(b, "date", c.Date)
	return b.finish(c.Extra)
}

// SourceRef records a source collected for a plan.
type SourceRef struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// Str returns a pointer to s, for filling optional fields.
func Str(s string) *string { return &s }
