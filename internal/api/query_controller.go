package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/warehouse-gin/internal/repository"
	"github.com/mautops/warehouse-gin/internal/service"
	"github.com/mautops/warehouse-gin/internal/utils"
)

// QueryController 任务查询控制器
type QueryController struct {
	queryService service.QueryService
}

// NewQueryController 创建任务查询控制器
func NewQueryController(queryService service.QueryService) *QueryController {
	return &QueryController{
		queryService: queryService,
	}
}

// List 查询任务列表
// @Summary      查询任务列表
// @Description  按条件查询任务,结果按看板展示顺序排列(紧急优先,同级先到先得)
// @Tags         任务查询
// @Produce      json
// @Param        state query string false "主状态"
// @Param        priority query string false "优先级"
// @Param        is_logistics query bool false "是否物流任务"
// @Param        part_number query string false "零件号"
// @Param        workplace query string false "工位"
// @Param        created_by query string false "创建人"
// @Param        include_done query bool false "是否包含已完成任务"
// @Param        start_time query string false "创建时间下限(RFC3339)"
// @Param        end_time query string false "创建时间上限(RFC3339)"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /tasks [get]
// @Security     BearerAuth
func (c *QueryController) List(ctx *gin.Context) {
	filter := &repository.TaskFilter{}

	if v := ctx.Query("state"); v != "" {
		filter.State = &v
	}
	if v := ctx.Query("priority"); v != "" {
		filter.Priority = &v
	}
	if v := ctx.Query("is_logistics"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid is_logistics", err.Error())
			return
		}
		filter.IsLogistics = &b
	}
	if v := ctx.Query("part_number"); v != "" {
		filter.PartNumber = &v
	}
	if v := ctx.Query("workplace"); v != "" {
		filter.Workplace = &v
	}
	if v := ctx.Query("created_by"); v != "" {
		filter.CreatedBy = &v
	}
	if v := ctx.Query("include_done"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid include_done", err.Error())
			return
		}
		filter.IncludeDone = b
	}
	if v := ctx.Query("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid start_time", err.Error())
			return
		}
		filter.StartTime = &t
	}
	if v := ctx.Query("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid end_time", err.Error())
			return
		}
		filter.EndTime = &t
	}

	tasks, err := c.queryService.ListTasks(ctx.Request.Context(), filter)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, tasks)
}

// History 查询任务状态历史
// @Summary      查询任务状态历史
// @Description  按时间升序返回任务的全部状态变更记录
// @Tags         任务查询
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Router       /tasks/{id}/history [get]
// @Security     BearerAuth
func (c *QueryController) History(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := utils.ValidateTaskID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid task ID", err.Error())
		return
	}

	history, err := c.queryService.TaskHistory(ctx.Request.Context(), id)
	if err != nil {
		EngineError(ctx, err)
		return
	}

	Success(ctx, history)
}
