package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	addrmodels "address-cri/internal/address/models"
	"address-cri/internal/session/models"
	id "address-cri/pkg/domain"
	"address-cri/pkg/platform/sentinel"
)

type SessionStoreSuite struct {
	suite.Suite
	store *InMemorySessionStore
}

func (s *SessionStoreSuite) SetupTest() {
	s.store = New()
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) makeSession() *models.Session {
	session, err := models.NewSession(id.NewSessionID(), "ipv-core", time.Now(), time.Hour)
	s.Require().NoError(err)
	return session
}

func (s *SessionStoreSuite) TestSessionLookup() {
	s.Run("returns stored session when found", func() {
		session := s.makeSession()
		s.Require().NoError(s.store.Create(context.Background(), session))

		found, err := s.store.FindByID(context.Background(), session.ID)
		s.Require().NoError(err)
		s.Equal(session, found)
	})

	s.Run("returns ErrNotFound when session does not exist", func() {
		_, err := s.store.FindByID(context.Background(), id.NewSessionID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned session does not alias stored state", func() {
		session := s.makeSession()
		s.Require().NoError(s.store.Create(context.Background(), session))

		found, err := s.store.FindByID(context.Background(), session.ID)
		s.Require().NoError(err)
		found.State = models.StateAddressConfirmed

		again, err := s.store.FindByID(context.Background(), session.ID)
		s.Require().NoError(err)
		s.Equal(models.StateCreated, again.State)
	})
}

func (s *SessionStoreSuite) TestCreate() {
	s.Run("rejects duplicate session id", func() {
		session := s.makeSession()
		s.Require().NoError(s.store.Create(context.Background(), session))
		s.Require().ErrorIs(s.store.Create(context.Background(), session), sentinel.ErrConflict)
	})
}

func (s *SessionStoreSuite) TestUpdate() {
	s.Run("persists state changes", func() {
		session := s.makeSession()
		s.Require().NoError(s.store.Create(context.Background(), session))

		addr := addrmodels.CanonicalAddress{PostalCode: "SW1A 2AA"}
		s.Require().NoError(session.ApplySubmission([]addrmodels.CanonicalAddress{addr}, session.CreatedAt))
		s.Require().NoError(s.store.Update(context.Background(), session))

		found, err := s.store.FindByID(context.Background(), session.ID)
		s.Require().NoError(err)
		s.Equal(models.StateAddressSubmitted, found.State)
		s.Len(found.CandidateAddresses, 1)
	})

	s.Run("update on non-existent session returns ErrNotFound", func() {
		err := s.store.Update(context.Background(), s.makeSession())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *SessionStoreSuite) TestAccessTokenBinding() {
	s.Run("binds token and finds session by token", func() {
		session := s.makeSession()
		s.Require().NoError(s.store.Create(context.Background(), session))

		s.Require().NoError(s.store.BindAccessToken(context.Background(), session.ID, "tok-123"))

		found, err := s.store.FindByAccessToken(context.Background(), "tok-123")
		s.Require().NoError(err)
		s.Equal(session.ID, found.ID)
		s.Equal("tok-123", found.AccessToken)
	})

	s.Run("unknown token returns ErrNotFound", func() {
		_, err := s.store.FindByAccessToken(context.Background(), "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("token bound to another session returns ErrConflict", func() {
		first := s.makeSession()
		second := s.makeSession()
		s.Require().NoError(s.store.Create(context.Background(), first))
		s.Require().NoError(s.store.Create(context.Background(), second))

		s.Require().NoError(s.store.BindAccessToken(context.Background(), first.ID, "tok-dup"))
		err := s.store.BindAccessToken(context.Background(), second.ID, "tok-dup")
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("binding on non-existent session returns ErrNotFound", func() {
		err := s.store.BindAccessToken(context.Background(), id.NewSessionID(), "tok-x")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *SessionStoreSuite) TestDelete() {
	s.Run("removes session and its token binding", func() {
		session := s.makeSession()
		s.Require().NoError(s.store.Create(context.Background(), session))
		s.Require().NoError(s.store.BindAccessToken(context.Background(), session.ID, "tok-del"))

		s.Require().NoError(s.store.Delete(context.Background(), session.ID))

		_, err := s.store.FindByID(context.Background(), session.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByAccessToken(context.Background(), "tok-del")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("deleting non-existent session returns ErrNotFound", func() {
		s.Require().ErrorIs(s.store.Delete(context.Background(), id.NewSessionID()), sentinel.ErrNotFound)
	})
}

func (s *SessionStoreSuite) confirmedSession(createdAt time.Time) *models.Session {
	session, err := models.NewSession(id.NewSessionID(), "ipv-core", createdAt, time.Hour)
	s.Require().NoError(err)
	addr := addrmodels.CanonicalAddress{PostalCode: "SW1A 2AA"}
	session.State = models.StateAddressConfirmed
	session.ConfirmedAddress = &addr
	return session
}

func (s *SessionStoreSuite) TestDeleteExpired() {
	now := time.Now()

	fresh, err := models.NewSession(id.NewSessionID(), "ipv-core", now, time.Hour)
	s.Require().NoError(err)
	stale, err := models.NewSession(id.NewSessionID(), "ipv-core", now.Add(-2*time.Hour), time.Hour)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Create(context.Background(), fresh))
	s.Require().NoError(s.store.Create(context.Background(), stale))

	deleted, err := s.store.DeleteExpired(context.Background(), now)
	s.Require().NoError(err)
	s.Equal(1, deleted)

	_, err = s.store.FindByID(context.Background(), stale.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(context.Background(), fresh.ID)
	s.Require().NoError(err)
}

func (s *SessionStoreSuite) TestDeleteExpiredKeepsConfirmedSessions() {
	now := time.Now()

	confirmed := s.confirmedSession(now.Add(-2 * time.Hour))
	s.Require().NoError(s.store.Create(context.Background(), confirmed))
	s.Require().NoError(s.store.BindAccessToken(context.Background(), confirmed.ID, "tok-confirmed"))

	retired := s.confirmedSession(now.Add(-confirmedRetention - 2*time.Hour))
	s.Require().NoError(s.store.Create(context.Background(), retired))

	deleted, err := s.store.DeleteExpired(context.Background(), now)
	s.Require().NoError(err)
	s.Equal(1, deleted)

	found, err := s.store.FindByID(context.Background(), confirmed.ID)
	s.Require().NoError(err)
	s.Equal(models.StateAddressConfirmed, found.State)
	s.Require().NotNil(found.ConfirmedAddress)

	byToken, err := s.store.FindByAccessToken(context.Background(), "tok-confirmed")
	s.Require().NoError(err)
	s.Equal(confirmed.ID, byToken.ID)

	_, err = s.store.FindByID(context.Background(), retired.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
