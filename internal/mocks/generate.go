package mocks

//go:generate mockery --name ProjectionReader --srcpkg github.com/aevon-lab/clickstream/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
