package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-signon/core"
	"github.com/uptrace/bun"
)

type ActivityStoreFactory struct {
	db *bun.DB

	activityStore *SignOnActivityStore
}

func NewActivityStoreFactory() *ActivityStoreFactory {
	return &ActivityStoreFactory{}
}

func NewActivityStoreFactoryFromPersistence(client *persistence.Client) (*ActivityStoreFactory, error) {
	factory := NewActivityStoreFactory()
	if _, err := factory.BuildActivityStore(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewActivityStoreFactoryFromDB(db *bun.DB) (*ActivityStoreFactory, error) {
	factory := NewActivityStoreFactory()
	if _, err := factory.BuildActivityStore(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *ActivityStoreFactory) BuildActivityStore(persistenceClient any) (core.SignOnActivitySink, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: activity store factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.activityStore != nil {
		return f.activityStore, nil
	}
	store, err := NewSignOnActivityStore(f.db)
	if err != nil {
		return nil, err
	}
	f.activityStore = store
	return f.activityStore, nil
}

func (f *ActivityStoreFactory) ActivityStore() *SignOnActivityStore {
	if f == nil {
		return nil
	}
	return f.activityStore
}

func (f *ActivityStoreFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
