package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService 调拨单 XLSX 导出
type ExportService struct {
	repos *repository.Repositories
}

func NewExportService(repos *repository.Repositories) *ExportService {
	return &ExportService{repos: repos}
}

var exportHeaders = []string{
	"单号", "商品", "SKU", "源位置", "目标位置",
	"申请数量", "批准数量", "实收数量", "破损数量", "未对账数量",
	"状态", "优先级", "申请人", "审批人", "创建时间", "完成时间",
}

// ExportTransfers 导出公司全部调拨单（可按状态过滤），返回 xlsx 字节流
func (s *ExportService) ExportTransfers(ctx context.Context, userID, status string) ([]byte, string, error) {
	actor, err := loadActor(ctx, s.repos, userID)
	if err != nil {
		return nil, "", err
	}
	if status != "" && !validStatus(status) {
		return nil, "", newValidationError("status", "unknown status")
	}

	items, err := s.repos.Transfer.ListAll(ctx, actor.CompanyID, repository.ListFilter{Status: status})
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "调拨单"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("创建工作表失败: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, t := range items {
		values := []interface{}{
			t.ID, t.ProductName, t.ProductSKU,
			formatRef(t.From()), formatRef(t.To()),
			t.RequestedQuantity, t.ApprovedQuantity, t.ReceivedQuantity, t.DamagedQuantity, t.UnreconciledQuantity,
			t.Status, t.Priority, t.RequestedByName, t.ApprovedByName,
			t.CreatedAt.Format("2006-01-02 15:04:05"), formatTime(t.CompletedAt),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("导出文件写入失败: %w", err)
	}

	filename := fmt.Sprintf("transfers_%s.xlsx", time.Now().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

func formatRef(ref entity.LocationRef) string {
	return ref.Type + ":" + ref.ID
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
