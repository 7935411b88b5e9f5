// Copyright 2026 The Trestle Authors
// SPDX-License-Identifier: Apache-2.0

package table

import (
	"fmt"
	"net/http"

	"github.com/trestle-storage/trestle/odata"
)

// MethodMerge is the MERGE verb. It is not a registered http.Method*
// constant; outside a batch it travels tunneled as POST plus
// X-HTTP-Method.
const MethodMerge = "MERGE"

// OperationKind names what an operation does to its entity.
type OperationKind string

const (
	KindInsert              OperationKind = "insert"
	KindDelete              OperationKind = "delete"
	KindReplace             OperationKind = "replace"
	KindMerge               OperationKind = "merge"
	KindInsertOrMerge       OperationKind = "insert-or-merge"
	KindInsertOrReplace     OperationKind = "insert-or-replace"
	KindRetrieve            OperationKind = "retrieve"
	KindRotateEncryptionKey OperationKind = "rotate-encryption-key"
)

// Wire behavior per kind. Kept as data so adding a kind means adding
// table rows, not another type in a hierarchy.
var (
	// operationVerbs is the verb of the kind as it appears inside a
	// changeset. Build tunnels MERGE through POST for single
	// requests.
	operationVerbs = map[OperationKind]string{
		KindInsert:              http.MethodPost,
		KindDelete:              http.MethodDelete,
		KindReplace:             http.MethodPut,
		KindMerge:               MethodMerge,
		KindInsertOrMerge:       MethodMerge,
		KindInsertOrReplace:     http.MethodPut,
		KindRetrieve:            http.MethodGet,
		KindRotateEncryptionKey: MethodMerge,
	}

	// operationHasBody marks the kinds that carry a projected JSON
	// entity.
	operationHasBody = map[OperationKind]bool{
		KindInsert:              true,
		KindReplace:             true,
		KindMerge:               true,
		KindInsertOrMerge:       true,
		KindInsertOrReplace:     true,
		KindRotateEncryptionKey: true,
	}

	// operationSendsIfMatch marks the kinds that are conditional on
	// the entity's ETag. The insert-or variants overwrite
	// unconditionally and never send If-Match.
	operationSendsIfMatch = map[OperationKind]bool{
		KindDelete:              true,
		KindReplace:             true,
		KindMerge:               true,
		KindRotateEncryptionKey: true,
	}

	// operationAddressesEntity marks the kinds whose URI names the
	// entity rather than the table collection.
	operationAddressesEntity = map[OperationKind]bool{
		KindDelete:              true,
		KindReplace:             true,
		KindMerge:               true,
		KindInsertOrMerge:       true,
		KindInsertOrReplace:     true,
		KindRetrieve:            true,
		KindRotateEncryptionKey: true,
	}

	// operationBodyKind classifies each bodied kind's entity body for
	// projection: insert bodies synthesize the leading key pairs,
	// merge bodies reject property encryption.
	operationBodyKind = map[OperationKind]odata.BodyKind{
		KindInsert:              odata.BodyInsert,
		KindReplace:             odata.BodyReplace,
		KindInsertOrReplace:     odata.BodyReplace,
		KindMerge:               odata.BodyMerge,
		KindInsertOrMerge:       odata.BodyMerge,
		KindRotateEncryptionKey: odata.BodyMerge,
	}
)

// Operation is one entity action bound to its table. Build one with
// the constructor for its kind; the zero value is not a valid
// operation.
type Operation struct {
	Kind   OperationKind
	Table  string
	Entity *odata.Entity

	// EchoContent asks an insert to return the stored entity in the
	// response instead of 204 No Content.
	EchoContent bool
}

// Insert adds a new entity to the table. echoContent selects the
// Prefer header: false asks for 204 No Content, true for the stored
// entity. Insert is the one kind that tolerates null entity keys; the
// service rejects them, but building the request is the caller's
// privilege.
func Insert(tableName string, entity *odata.Entity, echoContent bool) (Operation, error) {
	if err := checkOperation(KindInsert, tableName, entity); err != nil {
		return Operation{}, err
	}
	return Operation{Kind: KindInsert, Table: tableName, Entity: entity, EchoContent: echoContent}, nil
}

// Delete removes the entity. The entity's ETag guards the delete;
// an empty ETag deletes unconditionally with If-Match: *.
func Delete(tableName string, entity *odata.Entity) (Operation, error) {
	return newEntityOperation(KindDelete, tableName, entity)
}

// Replace overwrites the entity wholesale, guarded by its ETag.
func Replace(tableName string, entity *odata.Entity) (Operation, error) {
	return newEntityOperation(KindReplace, tableName, entity)
}

// Merge folds the entity's properties into the stored entity,
// guarded by its ETag. Properties absent from this entity keep their
// stored values.
func Merge(tableName string, entity *odata.Entity) (Operation, error) {
	return newEntityOperation(KindMerge, tableName, entity)
}

// InsertOrMerge merges when the entity exists and inserts otherwise.
// Unconditional: no If-Match is sent.
func InsertOrMerge(tableName string, entity *odata.Entity) (Operation, error) {
	return newEntityOperation(KindInsertOrMerge, tableName, entity)
}

// InsertOrReplace replaces when the entity exists and inserts
// otherwise. Unconditional: no If-Match is sent.
func InsertOrReplace(tableName string, entity *odata.Entity) (Operation, error) {
	return newEntityOperation(KindInsertOrReplace, tableName, entity)
}

// Retrieve reads one entity by its keys.
func Retrieve(tableName, partitionKey, rowKey string) (Operation, error) {
	return newEntityOperation(KindRetrieve, tableName, odata.NewEntity(partitionKey, rowKey))
}

// RotateEncryptionKey rewrites the entity's encryption metadata,
// ETag-guarded, leaving the data properties untouched. The entity
// must already carry the refreshed metadata properties; the body is a
// merge of exactly those.
func RotateEncryptionKey(tableName string, entity *odata.Entity) (Operation, error) {
	op, err := newEntityOperation(KindRotateEncryptionKey, tableName, entity)
	if err != nil {
		return Operation{}, err
	}
	if _, ok := entity.Properties[odata.PropertyEncryptionMetadata1]; !ok {
		return Operation{}, fmt.Errorf("table: rotate-encryption-key: entity has no %s property", odata.PropertyEncryptionMetadata1)
	}
	return op, nil
}

// newEntityOperation builds any kind that addresses an existing
// entity, which requires both keys.
func newEntityOperation(kind OperationKind, tableName string, entity *odata.Entity) (Operation, error) {
	if err := checkOperation(kind, tableName, entity); err != nil {
		return Operation{}, err
	}
	if _, _, ok := entity.Keys(); !ok {
		return Operation{}, fmt.Errorf("table: %s: entity needs both PartitionKey and RowKey", kind)
	}
	return Operation{Kind: kind, Table: tableName, Entity: entity}, nil
}

func checkOperation(kind OperationKind, tableName string, entity *odata.Entity) error {
	if !validTableName(tableName) {
		return fmt.Errorf("table: %s: invalid table name %q", kind, tableName)
	}
	if entity == nil {
		return fmt.Errorf("table: %s: nil entity", kind)
	}
	return nil
}

// ifMatchValue is the If-Match header of a conditional operation: the
// entity's ETag, or "*" for unconditional writes.
func ifMatchValue(entity *odata.Entity) string {
	if entity.ETag == "" {
		return "*"
	}
	return entity.ETag
}

// preferValue is the Prefer header of an insert.
func preferValue(echoContent bool) string {
	if echoContent {
		return odata.PreferReturnContent
	}
	return odata.PreferReturnNoContent
}

// wirePath is the operation's resource path relative to the account
// endpoint: the table collection for inserts, the parenthesized
// entity address for everything else.
func (op Operation) wirePath() string {
	if !operationAddressesEntity[op.Kind] {
		return op.Table
	}
	partitionKey, rowKey, _ := op.Entity.Keys()
	return entityPath(op.Table, partitionKey, rowKey)
}
