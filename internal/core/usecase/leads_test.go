package usecase_test

import (
	"context"
	"testing"

	"brokerage-backoffice/internal/adapters/inmemory"
	"brokerage-backoffice/internal/core/domain"
	"brokerage-backoffice/internal/core/usecase"
	"brokerage-backoffice/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type placerSpy struct {
	*boardSpy
	owners map[int64]string
}

func (p *placerSpy) StageOwner(stageID int64) (string, domain.Stage, error) {
	if id, ok := p.owners[stageID]; ok {
		return id, domain.Stage{ID: stageID}, nil
	}
	return "", domain.Stage{}, domain.ErrStageNotFound
}

type leadFixture struct {
	svc       *usecase.LeadService
	leads     *mocks.LeadGateway
	deals     *mocks.DealGateway
	journal   *inmemory.ConversionJournal
	board     *placerSpy
	publisher *mocks.EventPublisher
}

func newLeadFixture() leadFixture {
	f := leadFixture{
		leads:     &mocks.LeadGateway{},
		deals:     &mocks.DealGateway{},
		journal:   inmemory.NewConversionJournal(),
		board:     &placerSpy{boardSpy: newBoardSpy(), owners: map[int64]string{5: "p1"}},
		publisher: &mocks.EventPublisher{},
	}
	f.svc = usecase.NewLeadService(f.leads, f.deals, f.journal, f.board, f.publisher)
	return f
}

func sampleLead() domain.Lead {
	return domain.Lead{ID: 42, Name: "Maria Souza", Phone: "11999990000", Subject: "Apartamento no Centro", Status: domain.LeadStatusNew}
}

func TestCreateLead_Validation(t *testing.T) {
	t.Parallel()

	f := newLeadFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.LeadInput{Name: "Maria"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.Create(ctx, domain.LeadInput{Name: "Maria", Phone: "1199", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	f.leads.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)

	expected := domain.LeadInput{Name: "Maria", Phone: "1199", Status: domain.LeadStatusNew}
	f.leads.On("CreateLead", mock.Anything, expected).Return(domain.Lead{ID: 1, Name: "Maria"}, nil).Once()
	lead, err := f.svc.Create(ctx, domain.LeadInput{Name: " Maria ", Phone: "1199"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), lead.ID)
}

func TestListLeads_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	f := newLeadFixture()
	_, err := f.svc.List(context.Background(), "ARCHIVED")
	assert.ErrorIs(t, err, domain.ErrValidation)

	f.leads.On("ListLeads", mock.Anything, domain.LeadStatus("")).Return(nil, nil).Once()
	leads, err := f.svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, leads)
}

func TestConvertToDeal_Success(t *testing.T) {
	t.Parallel()

	f := newLeadFixture()
	lead := sampleLead()
	f.leads.On("GetLead", mock.Anything, int64(42)).Return(lead, nil).Once()
	f.deals.On("CreateDeal", mock.Anything, mock.MatchedBy(func(in domain.DealInput) bool {
		return in.Title == "Apartamento no Centro" && in.StageID == 5 && in.ContactName == "Maria Souza" &&
			in.LeadID != nil && *in.LeadID == 42
	})).Return(domain.Deal{ID: 900, Title: "Apartamento no Centro"}, nil).Once()
	f.leads.On("UpdateLeadStatus", mock.Anything, int64(42), domain.LeadStatusConverted).Return(nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.CRMEvent) bool {
		return e.Type == domain.EventLeadConverted && e.EntityID == 900
	})).Return(nil).Once()

	deal, err := f.svc.ConvertToDeal(context.Background(), 42, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(900), deal.ID)
	assert.Equal(t, int64(5), deal.StageID)

	require.Len(t, f.board.inserted, 1)
	assert.Equal(t, int64(900), f.board.inserted[0].ID)

	records := f.journal.All()
	require.Len(t, records, 1)
	assert.Equal(t, domain.ConversionCompleted, records[0].State)
	f.publisher.AssertExpectations(t)
}

func TestConvertToDeal_FallsBackToNameForTitle(t *testing.T) {
	t.Parallel()

	f := newLeadFixture()
	lead := sampleLead()
	lead.Subject = ""
	f.leads.On("GetLead", mock.Anything, int64(42)).Return(lead, nil).Once()
	f.deals.On("CreateDeal", mock.Anything, mock.MatchedBy(func(in domain.DealInput) bool {
		return in.Title == "Maria Souza"
	})).Return(domain.Deal{ID: 901}, nil).Once()
	f.leads.On("UpdateLeadStatus", mock.Anything, int64(42), domain.LeadStatusConverted).Return(nil).Once()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.ConvertToDeal(context.Background(), 42, 5)
	require.NoError(t, err)
}

func TestConvertToDeal_DealCreationFailureLeavesLeadUntouched(t *testing.T) {
	t.Parallel()

	f := newLeadFixture()
	f.leads.On("GetLead", mock.Anything, int64(42)).Return(sampleLead(), nil).Once()
	f.deals.On("CreateDeal", mock.Anything, mock.Anything).Return(domain.Deal{}, errRemote).Once()

	_, err := f.svc.ConvertToDeal(context.Background(), 42, 5)
	require.ErrorIs(t, err, errRemote)

	f.leads.AssertNotCalled(t, "UpdateLeadStatus", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.board.inserted)
	records := f.journal.All()
	require.Len(t, records, 1)
	assert.Equal(t, domain.ConversionFailed, records[0].State)
}

func TestConvertToDeal_StatusFailureCompensates(t *testing.T) {
	t.Parallel()

	f := newLeadFixture()
	f.leads.On("GetLead", mock.Anything, int64(42)).Return(sampleLead(), nil).Once()
	f.deals.On("CreateDeal", mock.Anything, mock.Anything).Return(domain.Deal{ID: 900}, nil).Once()
	f.leads.On("UpdateLeadStatus", mock.Anything, int64(42), domain.LeadStatusConverted).Return(errRemote).Once()
	f.deals.On("DeleteDeal", mock.Anything, int64(900)).Return(nil).Once()

	_, err := f.svc.ConvertToDeal(context.Background(), 42, 5)
	require.ErrorIs(t, err, errRemote)

	f.deals.AssertCalled(t, "DeleteDeal", mock.Anything, int64(900))
	assert.Empty(t, f.board.inserted)
	records := f.journal.All()
	require.Len(t, records, 1)
	assert.Equal(t, domain.ConversionCompensated, records[0].State)
	assert.NotEmpty(t, records[0].LastError)
}

func TestConvertToDeal_FailedCompensationIsRecovered(t *testing.T) {
	t.Parallel()

	f := newLeadFixture()
	ctx := context.Background()
	f.leads.On("GetLead", mock.Anything, int64(42)).Return(sampleLead(), nil).Once()
	f.deals.On("CreateDeal", mock.Anything, mock.Anything).Return(domain.Deal{ID: 900}, nil).Once()
	f.leads.On("UpdateLeadStatus", mock.Anything, int64(42), domain.LeadStatusConverted).Return(errRemote).Once()
	f.deals.On("DeleteDeal", mock.Anything, int64(900)).Return(errRemote).Once()

	_, err := f.svc.ConvertToDeal(ctx, 42, 5)
	require.Error(t, err)

	pending, err := f.journal.FindPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.ConversionDealCreated, pending[0].State)

	f.leads.On("UpdateLeadStatus", mock.Anything, int64(42), domain.LeadStatusConverted).Return(nil).Once()
	recovered, err := f.svc.RecoverConversions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	pending, _ = f.journal.FindPending(ctx)
	assert.Empty(t, pending)
}

func TestConvertToDeal_UnknownStageMakesNoCall(t *testing.T) {
	t.Parallel()

	f := newLeadFixture()

	_, err := f.svc.ConvertToDeal(context.Background(), 42, 77)
	assert.ErrorIs(t, err, domain.ErrStageNotFound)
	f.leads.AssertNotCalled(t, "GetLead", mock.Anything, mock.Anything)
}

func TestDeleteLead_RequiresConfirmation(t *testing.T) {
	t.Parallel()

	f := newLeadFixture()
	assert.ErrorIs(t, f.svc.Delete(context.Background(), 1, false), domain.ErrConfirmationRequired)
	f.leads.AssertNotCalled(t, "DeleteLead", mock.Anything, mock.Anything)
}
