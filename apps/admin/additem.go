package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kdadks/eyogi/core"
	"github.com/kdadks/eyogi/core/compliance"
)

// addItem creates a compliance item targeting a role.
func (cli *commandLine) addItem(title, role, itemType string, due *time.Time, mandatory bool) error {
	ctx := context.Background()
	title = core.CleanString(title)

	targetRole := compliance.Role(core.CleanString(role, true /* lower */))
	if !targetRole.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}
	typ := compliance.ItemType(core.CleanString(itemType, true /* lower */))
	if !typ.Valid() {
		return fmt.Errorf("invalid item type %q", itemType)
	}

	now := time.Now().UTC()
	item, err := cli.repo.CreateItem(ctx, compliance.Item{
		Title:       title,
		TargetRole:  targetRole,
		Type:        typ,
		IsMandatory: mandatory,
		DueDate:     due,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return err
	}
	logger.Printf("created item %s (%s)", item.ID, item.Title)
	return nil
}

// deactivateItem soft-deletes an item; its submissions are retained.
func (cli *commandLine) deactivateItem(id string) error {
	ctx := context.Background()

	item, err := cli.repo.GetItemByID(ctx, core.CleanString(id))
	if err != nil {
		return err
	}
	item.IsActive = false
	item.UpdatedAt = time.Now().UTC()
	if _, err = cli.repo.UpdateItem(ctx, item); err != nil {
		return err
	}
	logger.Printf("deactivated item %s (%s)", item.ID, item.Title)
	return nil
}
