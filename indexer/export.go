package indexer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"gorm.io/gorm"
)

const exportBatchSize = 500

type donationRow struct {
	ID        string `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Height    int64  `parquet:"name=height, type=INT64"`
	Donor     string `parquet:"name=donor, type=BYTE_ARRAY, convertedtype=UTF8"`
	Recipient string `parquet:"name=recipient, type=BYTE_ARRAY, convertedtype=UTF8"`
	Owner     string `parquet:"name=owner, type=BYTE_ARRAY, convertedtype=UTF8"`
	Denom     string `parquet:"name=denom, type=BYTE_ARRAY, convertedtype=UTF8"`
	Gross     string `parquet:"name=gross, type=BYTE_ARRAY, convertedtype=UTF8"`
	Net       string `parquet:"name=net, type=BYTE_ARRAY, convertedtype=UTF8"`
	Fee       string `parquet:"name=fee, type=BYTE_ARRAY, convertedtype=UTF8"`
	CreatedAt string `parquet:"name=created_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ExportDonations streams every donation matching filter to w as a Snappy
// compressed Parquet file in ascending height order. Limit is ignored.
// Amounts stay decimal strings since they may exceed 64 bits.
func (i *Indexer) ExportDonations(ctx context.Context, w io.Writer, filter DonationFilter) (int, error) {
	pw, err := writer.NewParquetWriter(writerfile.NewWriterFile(w), new(donationRow), 1)
	if err != nil {
		return 0, fmt.Errorf("indexer: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	query := i.db.WithContext(ctx).Model(&Donation{})
	if donor := strings.TrimSpace(filter.Donor); donor != "" {
		query = query.Where("donor = ?", donor)
	}
	if recipient := strings.TrimSpace(filter.Recipient); recipient != "" {
		query = query.Where("recipient = ?", recipient)
	}

	written := 0
	for offset := 0; ; offset += exportBatchSize {
		var batch []Donation
		err := query.Session(&gorm.Session{}).
			Order("height ASC").Order("id ASC").
			Offset(offset).Limit(exportBatchSize).
			Find(&batch).Error
		if err != nil {
			_ = pw.WriteStop()
			return written, err
		}
		for _, d := range batch {
			row := &donationRow{
				ID:        d.ID.String(),
				Height:    int64(d.Height),
				Donor:     d.Donor,
				Recipient: d.Recipient,
				Owner:     d.Owner,
				Denom:     d.Denom,
				Gross:     d.Gross,
				Net:       d.Net,
				Fee:       d.Fee,
				CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := pw.Write(row); err != nil {
				_ = pw.WriteStop()
				return written, fmt.Errorf("indexer: parquet write: %w", err)
			}
			written++
		}
		if len(batch) < exportBatchSize {
			break
		}
	}
	if err := pw.WriteStop(); err != nil {
		return written, fmt.Errorf("indexer: parquet flush: %w", err)
	}
	return written, nil
}
