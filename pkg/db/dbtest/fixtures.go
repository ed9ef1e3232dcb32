package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// SeedUser inserts a user with a unique email.
func SeedUser(t testing.TB, db *gorm.DB, name string) models.User {
	t.Helper()
	user := models.User{
		Email:       name + "-" + uuid.NewString()[:8] + "@example.com",
		DisplayName: name,
		Role:        enums.UserRoleUser,
	}
	mustCreate(t, db, &user)
	return user
}

// SeedPetType returns the pet type for slug, creating it when missing.
func SeedPetType(t testing.TB, db *gorm.DB, slug string) models.PetType {
	t.Helper()
	var petType models.PetType
	if err := db.Where("slug = ?", slug).First(&petType).Error; err == nil {
		return petType
	}
	petType = models.PetType{Slug: slug, Name: slug}
	mustCreate(t, db, &petType)
	return petType
}

// SeedPet inserts an active pet held by ownerID with an open ownership period
// and an owner relationship.
func SeedPet(t testing.TB, db *gorm.DB, ownerID uuid.UUID, slug string) models.Pet {
	t.Helper()
	petType := SeedPetType(t, db, slug)
	pet := models.Pet{
		UserID:    ownerID,
		PetTypeID: petType.ID,
		Name:      "Biscuit",
		Status:    enums.PetStatusActive,
	}
	mustCreate(t, db, &pet)
	pet.PetType = &petType

	start := time.Now().UTC().Add(-24 * time.Hour)
	mustCreate(t, db, &models.OwnershipHistory{PetID: pet.ID, UserID: ownerID, FromTS: start})
	mustCreate(t, db, &models.PetRelationship{
		PetID:            pet.ID,
		UserID:           ownerID,
		RelationshipType: enums.RelationshipOwner,
		StartAt:          start,
	})
	return pet
}

// SeedHelperProfile inserts a helper profile for userID.
func SeedHelperProfile(t testing.TB, db *gorm.DB, userID uuid.UUID) models.HelperProfile {
	t.Helper()
	profile := models.HelperProfile{UserID: userID, CanFoster: true, CanAdopt: true, CanPetSit: true}
	mustCreate(t, db, &profile)
	return profile
}

// CountEvents returns how many outbox rows of eventType were written.
func CountEvents(t testing.TB, db *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	return count
}

func mustCreate(t testing.TB, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}
