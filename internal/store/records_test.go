package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/metadata"
	"github.com/roach88/crmbdd/internal/queryir"
	"github.com/roach88/crmbdd/internal/testutil"
)

func TestCreate_RoundTripsEveryKind(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	account := createTestRecord(t, s, "account", map[string]any{"name": "Acme"})
	birth := time.Date(1980, 5, 17, 0, 0, 0, 0, time.UTC)

	contact := createTestRecord(t, s, "contact", map[string]any{
		"firstname":        "John",
		"donotemail":       true,
		"numberofchildren": int64(2),
		"latitude":         52.37,
		"exchangerate":     decimal.RequireFromString("1.25"),
		"creditlimit":      crm.Money{Value: decimal.RequireFromString("1000.50")},
		"birthdate":        birth,
		"gendercode":       crm.OptionSetValue{Value: 1, Label: "Male"},
		"parentcustomerid": crm.EntityReference{LogicalName: "account", ID: account.ID, Name: "Acme"},
	})

	got, err := s.Retrieve(ctx, contact, nil)
	require.NoError(t, err)

	assert.Equal(t, "John", got.Attributes["firstname"])
	assert.Equal(t, true, got.Attributes["donotemail"])
	assert.Equal(t, int64(2), got.Attributes["numberofchildren"])
	assert.Equal(t, 52.37, got.Attributes["latitude"])
	assert.True(t, decimal.RequireFromString("1.25").Equal(got.Attributes["exchangerate"].(decimal.Decimal)))
	assert.Equal(t, "1000.5", got.Attributes["creditlimit"].(crm.Money).Value.String())
	assert.True(t, birth.Equal(got.Attributes["birthdate"].(time.Time)))
	assert.Equal(t, crm.OptionSetValue{Value: 1, Label: "Male"}, got.Attributes["gendercode"])
	assert.Equal(t, crm.EntityReference{LogicalName: "account", ID: account.ID, Name: "Acme"}, got.Attributes["parentcustomerid"])
	assert.Equal(t, contact.ID, got.Attributes["contactid"], "primary id attribute is set")
	assert.True(t, testutil.Epoch.Add(2*time.Second).Equal(got.Attributes["createdon"].(time.Time)))
}

func TestCreate_DefaultsToActiveState(t *testing.T) {
	s := createTestStore(t)

	ref := createTestRecord(t, s, "contact", map[string]any{"lastname": "Doe"})
	got, err := s.Retrieve(context.Background(), ref, []string{StateAttribute, StatusAttribute})
	require.NoError(t, err)

	assert.Equal(t, crm.OptionSetValue{Value: 0, Label: "Active"}, got.Attributes[StateAttribute])
	assert.Equal(t, crm.OptionSetValue{Value: 1, Label: "Active"}, got.Attributes[StatusAttribute])
	assert.Len(t, got.Attributes, 2, "columns restrict loaded attributes")
}

func TestCreate_UnknownEntityIsAccepted(t *testing.T) {
	s := createTestStore(t)

	ref := createTestRecord(t, s, "task", map[string]any{"subject": "call"})
	got, err := s.Retrieve(context.Background(), ref, []string{"subject"})
	require.NoError(t, err)
	assert.Equal(t, "call", got.Attributes["subject"])
}

func TestCreate_ExplicitID(t *testing.T) {
	s := createTestStore(t)
	want := uuid.MustParse("00000000-0000-0000-0000-0000000000aa")

	record := crm.NewEntity("contact")
	record.ID = want
	id, err := s.Create(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, want, id)

	_, err = s.Create(context.Background(), record)
	require.Error(t, err, "duplicate ids are rejected")
	assert.True(t, crm.IsStoreError(err))
}

func TestRetrieveMultiple_CreateThenQuery(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	john := createTestRecord(t, s, "contact", map[string]any{"firstname": "John", "lastname": "Doe"})
	createTestRecord(t, s, "contact", map[string]any{"firstname": "Jane", "lastname": "Doe"})
	createTestRecord(t, s, "account", map[string]any{"name": "John"})

	records, err := s.RetrieveMultiple(ctx, queryir.Select{
		From: "contact",
		Filter: queryir.Where(
			queryir.Equals{Field: "firstname", Value: "John"},
			queryir.Equals{Field: "lastname", Value: "Doe"},
		),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, john.ID, records[0].ID)
	assert.Equal(t, "Doe", records[0].Attributes["lastname"])
}

func TestRetrieveMultiple_PrimitiveFiltersMatchRichValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	account := createTestRecord(t, s, "account", map[string]any{"name": "Acme"})
	want := createTestRecord(t, s, "contact", map[string]any{
		"gendercode":       crm.OptionSetValue{Value: 2, Label: "Female"},
		"creditlimit":      crm.Money{Value: decimal.RequireFromString("10.00")},
		"parentcustomerid": crm.EntityReference{LogicalName: "account", ID: account.ID},
		"donotemail":       false,
	})
	createTestRecord(t, s, "contact", map[string]any{"gendercode": crm.OptionSetValue{Value: 1}})

	testCases := []struct {
		name  string
		field string
		value any
	}{
		{"option code", "gendercode", int64(2)},
		{"money as decimal", "creditlimit", decimal.RequireFromString("10")},
		{"reference as uuid", "parentcustomerid", account.ID},
		{"boolean", "donotemail", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records, err := s.RetrieveMultiple(ctx, queryir.Select{
				From:    "contact",
				Filter:  queryir.Equals{Field: tc.field, Value: tc.value},
				Columns: []string{},
			})
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.Equal(t, want.ID, records[0].ID)
			assert.Empty(t, records[0].Attributes)
		})
	}
}

func TestRetrieveMultiple_NotInAndTop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	contact := createTestRecord(t, s, "contact", map[string]any{"lastname": "Doe"})
	regarding := crm.EntityReference{LogicalName: "contact", ID: contact.ID}
	for _, code := range []int64{30, 20, 0} {
		createTestRecord(t, s, "asyncoperation", map[string]any{
			"regardingobjectid": regarding,
			"statuscode":        crm.OptionSetValue{Value: code},
		})
	}

	query := queryir.Select{
		From: "asyncoperation",
		Filter: queryir.Where(
			queryir.Equals{Field: "regardingobjectid", Value: contact.ID},
			queryir.NotIn{Field: "statuscode", Values: []any{int64(10), int64(30), int64(31), int64(32)}},
		),
	}
	records, err := s.RetrieveMultiple(ctx, query)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, crm.OptionSetValue{Value: 20, Label: ""}, records[0].Attributes["statuscode"], "creation order")

	query.Top = 1
	records, err = s.RetrieveMultiple(ctx, query)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRetrieveMultiple_EmptyResultIsNotNil(t *testing.T) {
	s := createTestStore(t)

	records, err := s.RetrieveMultiple(context.Background(), queryir.Select{
		From:   "contact",
		Filter: queryir.Equals{Field: "lastname", Value: "Nobody"},
	})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestRetrieveMultiple_InvalidQuery(t *testing.T) {
	s := createTestStore(t)

	_, err := s.RetrieveMultiple(context.Background(), queryir.Select{})
	require.Error(t, err)
	assert.True(t, crm.IsStoreError(err))
	assert.True(t, errors.Is(err, queryir.ErrInvalidQuery))
}

func TestUpdate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ref := createTestRecord(t, s, "contact", map[string]any{"firstname": "John", "lastname": "Doe"})

	update := crm.Entity{LogicalName: "contact", ID: ref.ID}
	update.Set("lastname", "Smith")
	update.Set("firstname", nil)
	require.NoError(t, s.Update(ctx, update))

	got, err := s.Retrieve(ctx, ref, nil)
	require.NoError(t, err)
	assert.Equal(t, "Smith", got.Attributes["lastname"])
	_, ok := got.Attributes["firstname"]
	assert.False(t, ok, "nil clears the attribute")
}

func TestUpdate_Missing(t *testing.T) {
	s := createTestStore(t)

	err := s.Update(context.Background(), crm.Entity{LogicalName: "contact", ID: uuid.New()})
	require.Error(t, err)
	assert.True(t, crm.IsStoreError(err))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ref := createTestRecord(t, s, "contact", map[string]any{"lastname": "Doe"})

	require.NoError(t, s.Delete(ctx, ref))

	_, err := s.Retrieve(ctx, ref, nil)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.Delete(ctx, ref)
	assert.True(t, errors.Is(err, ErrNotFound), "deleting twice fails")

	var storeErr *crm.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "delete", storeErr.Op)
}

func TestSetState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ref := createTestRecord(t, s, "contact", nil)

	require.NoError(t, s.SetState(ctx, SetStateRequest{
		Target: ref,
		State:  crm.OptionSetValue{Value: 1, Label: "Inactive"},
		Status: crm.OptionSetValue{Value: 2, Label: "Inactive"},
	}))

	got, err := s.Retrieve(ctx, ref, []string{StateAttribute, StatusAttribute})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Attributes[StateAttribute].(crm.OptionSetValue).Value)
	assert.Equal(t, int64(2), got.Attributes[StatusAttribute].(crm.OptionSetValue).Value)
}

func TestAssociate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	contact := createTestRecord(t, s, "contact", nil)
	a1 := createTestRecord(t, s, "account", map[string]any{"name": "A1"})
	a2 := createTestRecord(t, s, "account", map[string]any{"name": "A2"})

	require.NoError(t, s.Associate(ctx, "contact_account_nn", contact, []crm.EntityReference{a1, a2}))
	require.NoError(t, s.Associate(ctx, "contact_account_nn", contact, []crm.EntityReference{a1}), "associating twice is a no-op")

	related, err := s.Associations(ctx, "contact_account_nn", contact)
	require.NoError(t, err)
	assert.Equal(t, []crm.EntityReference{a1, a2}, related)

	back, err := s.Associations(ctx, "contact_account_nn", a2)
	require.NoError(t, err)
	assert.Equal(t, []crm.EntityReference{contact}, back, "links are symmetric")

	none, err := s.Associations(ctx, "other_nn", contact)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAssociate_MissingRecord(t *testing.T) {
	s := createTestStore(t)
	contact := createTestRecord(t, s, "contact", nil)

	err := s.Associate(context.Background(), "contact_account_nn", contact,
		[]crm.EntityReference{{LogicalName: "account", ID: uuid.New()}})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMerge(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	main := createTestRecord(t, s, "contact", map[string]any{"lastname": "Doe"})
	dup := createTestRecord(t, s, "contact", map[string]any{"lastname": "Doe", "emailaddress1": "j@example.com"})

	content := crm.NewEntity("contact")
	content.Set("emailaddress1", "j@example.com")
	require.NoError(t, s.Merge(ctx, MergeRequest{Target: main, Subordinate: dup, UpdateContent: content}))

	target, err := s.Retrieve(ctx, main, nil)
	require.NoError(t, err)
	assert.Equal(t, "j@example.com", target.Attributes["emailaddress1"])

	sub, err := s.Retrieve(ctx, dup, nil)
	require.NoError(t, err)
	assert.Equal(t, true, sub.Attributes[MergedAttribute])
	assert.Equal(t, main.ID, sub.Attributes[MasterIDAttribute].(crm.EntityReference).ID)
	assert.Equal(t, crm.OptionSetValue{Value: 1, Label: "Inactive"}, sub.Attributes[StateAttribute])
	assert.Equal(t, crm.OptionSetValue{Value: 2, Label: "Inactive"}, sub.Attributes[StatusAttribute])
}

func TestMerge_Rejects(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	contact := createTestRecord(t, s, "contact", nil)
	account := createTestRecord(t, s, "account", map[string]any{"name": "Acme"})

	assert.ErrorContains(t, s.Merge(ctx, MergeRequest{Target: contact, Subordinate: account}), "entity types differ")
	assert.ErrorContains(t, s.Merge(ctx, MergeRequest{Target: contact, Subordinate: contact}), "into itself")
}

func TestProcessStages(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	account := createTestRecord(t, s, "account", map[string]any{"name": "Acme"})
	stage, err := s.ActiveStage(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, "Qualify", stage, "records start at the first stage")

	require.NoError(t, s.SetActiveStage(ctx, account, "Account Onboarding", "Propose"))
	stage, err = s.ActiveStage(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, "Propose", stage)

	contact := createTestRecord(t, s, "contact", nil)
	_, err = s.ActiveStage(ctx, contact)
	assert.True(t, errors.Is(err, ErrNotFound), "entities without a process have no stage")
}

func TestCreate_ProcessWithoutStages(t *testing.T) {
	lead := &metadata.EntityMetadata{
		LogicalName:          "lead",
		PrimaryIDAttribute:   "leadid",
		PrimaryNameAttribute: "subject",
		Attributes: map[string]*metadata.AttributeMetadata{
			"subject": {LogicalName: "subject", EntityLogicalName: "lead", Type: metadata.TypeString},
		},
		Process: &metadata.ProcessDefinition{Name: "Lead Qualification"},
	}
	s, err := Open(":memory:", WithMetadata(metadata.NewCached(metadata.NewStatic(lead))))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	record := crm.NewEntity("lead")
	record.Set("subject", "Hot")
	var id uuid.UUID
	require.NotPanics(t, func() {
		id, err = s.Create(ctx, record)
	})
	require.NoError(t, err)

	_, err = s.ActiveStage(ctx, crm.EntityReference{LogicalName: "lead", ID: id})
	assert.ErrorIs(t, err, ErrNotFound)
}
