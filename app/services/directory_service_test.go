package services

import (
	"testing"

	"rightsnet/app/models"
	"rightsnet/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryService(t *testing.T) {
	env := newTestEnv(t)
	svc := env.directory
	org := env.organization(t, "sheltertrust", "SY")
	otherOrg := env.organization(t, "medaid", "SY")
	person := env.signup(t, "person", "SY")

	t.Run("organizations only", func(t *testing.T) {
		_, err := svc.Create(person.ID, ListingInput{Name: "My Service", Category: "other", CountryCode: "SY"})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	var listing *models.Listing
	t.Run("create", func(t *testing.T) {
		var err error
		listing, err = svc.Create(org.ID, ListingInput{
			Name:        " Aleppo Shelter ",
			Category:    "Shelter",
			CountryCode: "sy",
			City:        "Aleppo",
			Website:     "https://shelter.example.org",
		})
		require.NoError(t, err)
		assert.Equal(t, "Aleppo Shelter", listing.Name)
		assert.Equal(t, "shelter", listing.Category)
		assert.Equal(t, "SY", listing.CountryCode)
		assert.Equal(t, org.ID, listing.OwnerID)
		assert.False(t, listing.Verified)

		_, err = svc.Create(org.ID, ListingInput{Name: "Nowhere", Category: "shelter", CountryCode: "ZZ"})
		assert.ErrorIs(t, err, ErrInvalid)
		_, err = svc.Create(org.ID, ListingInput{Name: "Odd", Category: "casino", CountryCode: "SY"})
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("update and delete are owner only", func(t *testing.T) {
		_, err := svc.Update(otherOrg.ID, listing.ID, ListingInput{Name: "Mine now", Category: "shelter", CountryCode: "SY"})
		assert.ErrorIs(t, err, ErrForbidden)
		assert.ErrorIs(t, svc.Delete(otherOrg.ID, listing.ID), ErrForbidden)

		updated, err := svc.Update(org.ID, listing.ID, ListingInput{Name: "Aleppo Shelter", Category: "shelter", CountryCode: "SY", Phone: "+963 21 000"})
		require.NoError(t, err)
		assert.Equal(t, "+963 21 000", updated.Phone)
		assert.True(t, listing.CreatedAt.Equal(updated.CreatedAt))
	})

	t.Run("verify", func(t *testing.T) {
		v, err := svc.Verify(listing.ID)
		require.NoError(t, err)
		assert.True(t, v.Verified)
	})

	t.Run("import", func(t *testing.T) {
		n, err := svc.Import([]*models.Listing{
			{Name: "Clinic One", Category: "medical", CountryCode: "SY", City: "Idlib"},
			{Name: "Legal Help", Category: "legal_aid", CountryCode: "KE", OwnerID: 42},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		// a bad entry stores nothing
		n, err = svc.Import([]*models.Listing{
			{Name: "Fine", Category: "medical", CountryCode: "SY"},
			{Name: "Broken", Category: "medical"},
		})
		assert.ErrorIs(t, err, ErrInvalid)
		assert.Zero(t, n)

		all, err := svc.List(repositories.ListingFilter{}, 1, 50)
		require.NoError(t, err)
		assert.Len(t, all, 3)
		for _, l := range all {
			if l.Name == "Legal Help" {
				assert.Zero(t, l.OwnerID)
				assert.True(t, l.Verified)
			}
		}
	})

	t.Run("list filters", func(t *testing.T) {
		syria, err := svc.List(repositories.ListingFilter{CountryCode: "sy"}, 1, 50)
		require.NoError(t, err)
		assert.Len(t, syria, 2)

		_, err = svc.List(repositories.ListingFilter{Category: "casino"}, 1, 50)
		assert.ErrorIs(t, err, ErrInvalid)

		medical, err := svc.List(repositories.ListingFilter{Category: "Medical"}, 1, 50)
		require.NoError(t, err)
		require.Len(t, medical, 1)
		assert.Equal(t, "Clinic One", medical[0].Name)

		byCity, err := svc.List(repositories.ListingFilter{Query: "idlib"}, 1, 50)
		require.NoError(t, err)
		assert.Len(t, byCity, 1)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(org.ID, listing.ID))
		_, err := svc.Get(listing.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}
